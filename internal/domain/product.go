package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category — закрытый перечень категорий каталога.
type Category string

const (
	CategoryLaptops     Category = "Laptops"
	CategorySmartphones Category = "Smartphones"
	CategoryAudio       Category = "Audio"
	CategoryGaming      Category = "Gaming"
	CategoryAccessories Category = "Accessories"
)

// Categories возвращает все категории в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryLaptops,
		CategorySmartphones,
		CategoryAudio,
		CategoryGaming,
		CategoryAccessories,
	}
}

// Valid сообщает, входит ли категория в перечень.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Review — отзыв покупателя о товаре.
type Review struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"userId" yaml:"userId"`
	UserName  string    `json:"userName" yaml:"userName"`
	Rating    int       `json:"rating" yaml:"rating"`
	Comment   string    `json:"comment" yaml:"comment"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Product описывает товар каталога. С точки зрения корзины товар неизменяем,
// Price — неотрицательная цена за единицу.
type Product struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	Description     string            `json:"description" yaml:"description"`
	FullDescription string            `json:"fullDescription,omitempty" yaml:"fullDescription"`
	Price           decimal.Decimal   `json:"price" yaml:"price"`
	ImageURL        string            `json:"imageUrl" yaml:"imageUrl"`
	Category        Category          `json:"category" yaml:"category"`
	InStock         bool              `json:"inStock" yaml:"inStock"`
	Specifications  map[string]string `json:"specifications,omitempty" yaml:"specifications"`
	Reviews         []Review          `json:"reviews,omitempty" yaml:"reviews"`
	AverageRating   float64           `json:"averageRating" yaml:"averageRating"`
}

// Clone возвращает копию товара с собственными Specifications и Reviews.
func (p Product) Clone() Product {
	if p.Specifications != nil {
		specs := make(map[string]string, len(p.Specifications))
		for k, v := range p.Specifications {
			specs[k] = v
		}
		p.Specifications = specs
	}
	if p.Reviews != nil {
		reviews := make([]Review, len(p.Reviews))
		copy(reviews, p.Reviews)
		p.Reviews = reviews
	}
	return p
}
