package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem — позиция корзины: товар и количество (>= 1).
// Идентичность позиции совпадает с ID товара.
type LineItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal возвращает price × quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartState — состояние корзины. Total всегда пересчитывается из Items.
type CartState struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// NewCartState строит состояние из позиций, вычисляя итог.
func NewCartState(items []LineItem) CartState {
	if items == nil {
		items = []LineItem{}
	}
	return CartState{Items: items, Total: CalculateTotal(items)}
}

// Clone возвращает глубокую копию состояния: изменения копии не видны в исходном.
func (s CartState) Clone() CartState {
	return CartState{Items: CloneLineItems(s.Items), Total: s.Total}
}

// CloneLineItems копирует позиции вместе с вложенными данными товара.
// nil превращается в пустой слайс.
func CloneLineItems(items []LineItem) []LineItem {
	cloned := make([]LineItem, len(items))
	for i, item := range items {
		item.Product = item.Product.Clone()
		cloned[i] = item
	}
	return cloned
}

// Find возвращает индекс позиции по ID товара или -1.
func (s CartState) Find(productID string) int {
	for i, item := range s.Items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// CalculateTotal суммирует price × quantity по всем позициям.
func CalculateTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount — суммарное количество единиц товара (для индикатора корзины).
func ItemCount(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// ValidateLineItems проверяет позиции, пришедшие извне (например, в PUT с клиента).
func ValidateLineItems(items []LineItem) []error {
	var errs []error
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			errs = append(errs, ErrProductIDRequired)
			continue
		}
		if _, dup := seen[item.ID]; dup {
			errs = append(errs, ErrDuplicateLineItem)
		}
		seen[item.ID] = struct{}{}
		if item.Quantity < 1 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
	}
	return errs
}

// ServerCart — серверная копия корзины пользователя.
type ServerCart struct {
	UserID    string
	Items     []LineItem
	UpdatedAt time.Time
}

// CartResponse — тело ответа GET/PUT /api/cart/{userId}.
type CartResponse struct {
	Items     []LineItem `json:"items"`
	UserID    string     `json:"userId"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartRequest — тело запроса PUT /api/cart/{userId}.
type CartRequest struct {
	Items []LineItem `json:"items"`
}

// ToResponse конвертирует серверную корзину в DTO.
func (c ServerCart) ToResponse() CartResponse {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return CartResponse{Items: items, UserID: c.UserID, UpdatedAt: c.UpdatedAt}
}
