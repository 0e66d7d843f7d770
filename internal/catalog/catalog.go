package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Catalog — неизменяемый список товаров в порядке загрузки.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

// New строит каталог. Товары с пустым или повторным ID отклоняются.
func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, domain.ErrProductIDRequired
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %q: %w", p.ID, domain.ErrDuplicateLineItem)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q: %w", p.ID, domain.ErrPriceNegative)
		}
		if p.Category != "" && !p.Category.Valid() {
			return nil, fmt.Errorf("product %q: unknown category %q", p.ID, p.Category)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadFile читает каталог из YAML-файла вида `products: [...]`.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(file.Products)
}

// Len возвращает количество товаров.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Get возвращает товар по ID или ErrProductNotFound.
func (c *Catalog) Get(id string) (domain.Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return c.products[idx], nil
}

// Search — линейный фильтр: подстрока query (без учёта регистра) в названии
// или описании и, если задана, совпадение категории. Пустой query
// пропускает все товары.
func (c *Catalog) Search(query string, category domain.Category) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(query))

	result := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && p.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		result = append(result, p)
	}
	return result
}
