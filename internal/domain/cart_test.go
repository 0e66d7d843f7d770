package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func item(id string, price string, qty int) domain.LineItem {
	return domain.LineItem{
		Product:  domain.Product{ID: id, Name: "product " + id, Price: decimal.RequireFromString(price)},
		Quantity: qty,
	}
}

func TestCalculateTotal(t *testing.T) {
	items := []domain.LineItem{item("a", "10", 2), item("b", "0.10", 3), item("c", "999.99", 1)}

	total := domain.CalculateTotal(items)
	require.True(t, total.Equal(decimal.RequireFromString("1020.29")), "got %s", total)
	require.True(t, domain.CalculateTotal(nil).IsZero())
}

func TestItemCount(t *testing.T) {
	require.Equal(t, 6, domain.ItemCount([]domain.LineItem{item("a", "1", 2), item("b", "1", 4)}))
	require.Zero(t, domain.ItemCount(nil))
}

func TestNewCartState_EmptyItemsNotNil(t *testing.T) {
	state := domain.NewCartState(nil)
	require.NotNil(t, state.Items)
	require.True(t, state.Total.IsZero())
}

func TestCartState_CloneIsIndependent(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{item("a", "5", 1)})
	clone := state.Clone()
	clone.Items[0].Quantity = 10

	require.Equal(t, 1, state.Items[0].Quantity)
	require.Equal(t, 0, state.Find("a"))
	require.Equal(t, -1, state.Find("missing"))
}

func TestCartState_CloneCopiesProductData(t *testing.T) {
	li := item("a", "5", 1)
	li.Specifications = map[string]string{"color": "black"}
	li.Reviews = []domain.Review{{ID: "r1", Rating: 5}}
	state := domain.NewCartState([]domain.LineItem{li})

	clone := state.Clone()
	clone.Items[0].Specifications["color"] = "white"
	clone.Items[0].Reviews[0].Rating = 1

	require.Equal(t, "black", state.Items[0].Specifications["color"])
	require.Equal(t, 5, state.Items[0].Reviews[0].Rating)
}

func TestCloneLineItems_NilBecomesEmpty(t *testing.T) {
	cloned := domain.CloneLineItems(nil)
	require.NotNil(t, cloned)
	require.Empty(t, cloned)
}

func TestLineItem_PriceJSONIsQuotedDecimal(t *testing.T) {
	out, err := json.Marshal(item("a", "1299.00", 1))
	require.NoError(t, err)
	require.Contains(t, string(out), `"price":"1299"`)

	var fromString, fromNumber domain.LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","price":"25.50","quantity":1}`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","price":25.5,"quantity":1}`), &fromNumber))
	require.True(t, fromString.Price.Equal(fromNumber.Price))
	require.Equal(t, "25.50", fromNumber.Price.StringFixed(2))
}

func TestLineItem_JSONIsFlat(t *testing.T) {
	raw := []byte(`{"id":"p1","name":"Laptop","price":10.5,"category":"Laptops","inStock":true,"quantity":2}`)

	var li domain.LineItem
	require.NoError(t, json.Unmarshal(raw, &li))
	require.Equal(t, "p1", li.ID)
	require.Equal(t, domain.CategoryLaptops, li.Category)
	require.Equal(t, 2, li.Quantity)
	require.True(t, li.Subtotal().Equal(decimal.NewFromInt(21)))

	out, err := json.Marshal(li)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	require.Contains(t, fields, "quantity")
	require.Contains(t, fields, "id")
	require.NotContains(t, fields, "Product")
}

func TestValidateLineItems(t *testing.T) {
	cases := []struct {
		name  string
		items []domain.LineItem
		want  error
	}{
		{name: "missing id", items: []domain.LineItem{item("", "1", 1)}, want: domain.ErrProductIDRequired},
		{name: "zero quantity", items: []domain.LineItem{item("a", "1", 0)}, want: domain.ErrQuantityInvalid},
		{name: "negative price", items: []domain.LineItem{item("a", "-1", 1)}, want: domain.ErrPriceNegative},
		{name: "duplicate", items: []domain.LineItem{item("a", "1", 1), item("a", "1", 1)}, want: domain.ErrDuplicateLineItem},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := domain.ValidateLineItems(tc.items)
			require.Contains(t, errs, tc.want)
		})
	}

	require.Empty(t, domain.ValidateLineItems([]domain.LineItem{item("a", "1", 1), item("b", "0", 3)}))
}
