package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range domain.Categories() {
		if !c.Valid() {
			t.Fatalf("expected %s to be valid", c)
		}
	}
	if domain.Category("Furniture").Valid() {
		t.Fatal("unexpected valid category")
	}
}
