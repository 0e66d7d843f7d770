package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа витрины.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен и ждёт обработки.
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrdersPageSize — количество заказов на странице истории.
const OrdersPageSize = 10

// Valid сообщает, входит ли статус в перечень.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingAddress — адрес доставки заказа.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Validate требует все поля адреса.
func (a ShippingAddress) Validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"fullName", a.FullName},
		{"address", a.Address},
		{"city", a.City},
		{"country", a.Country},
		{"postalCode", a.PostalCode},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrShippingAddressIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// OrderItem — позиция заказа. Название и цена фиксируются на момент оформления.
type OrderItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl"`
}

// Subtotal возвращает price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order агрегирует оформленную корзину.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CheckoutRequest — тело запроса POST /api/orders/{userId}.
type CheckoutRequest struct {
	Items           []LineItem      `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

// NewOrder оформляет позиции корзины в заказ со статусом pending.
// ID позиций строятся из ID заказа: "<order>-1", "<order>-2", ...
func NewOrder(id, userID string, items []LineItem, address ShippingAddress, now time.Time) (Order, error) {
	if userID == "" {
		return Order{}, ErrUserIDRequired
	}
	if len(items) == 0 {
		return Order{}, ErrCartEmpty
	}
	if errs := ValidateLineItems(items); len(errs) > 0 {
		return Order{}, errors.Join(errs...)
	}
	if err := address.Validate(); err != nil {
		return Order{}, err
	}

	orderItems := make([]OrderItem, 0, len(items))
	for i, item := range items {
		orderItems = append(orderItems, OrderItem{
			ID:          fmt.Sprintf("%s-%d", id, i+1),
			ProductID:   item.ID,
			ProductName: item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
		})
	}

	return Order{
		ID:              id,
		UserID:          userID,
		Items:           orderItems,
		Total:           CalculateTotal(items),
		Status:          OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ItemCount — суммарное количество единиц в заказе.
func (o Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserIDRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}

	// Сверяем итог с суммой позиций: qty * price.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity < 1 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
		calc = calc.Add(item.Subtotal())
	}
	if !calc.Equal(o.Total) {
		errs = append(errs, ErrOrderTotalMismatch)
	}

	return errs
}

// OrderPage — страница истории заказов пользователя.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	TotalOrders int     `json:"totalOrders"`
}

// PageOffset возвращает смещение первой записи страницы page (с 1).
func PageOffset(page int) (int, error) {
	if page < 1 {
		return 0, ErrPageInvalid
	}
	return (page - 1) * OrdersPageSize, nil
}

// NewOrderPage собирает страницу; TotalPages округляется вверх.
func NewOrderPage(orders []Order, totalOrders, page int) OrderPage {
	if orders == nil {
		orders = []Order{}
	}
	return OrderPage{
		Orders:      orders,
		TotalPages:  (totalOrders + OrdersPageSize - 1) / OrdersPageSize,
		CurrentPage: page,
		TotalOrders: totalOrders,
	}
}

// CloneOrder возвращает копию заказа с собственным слайсом позиций.
func CloneOrder(o Order) Order {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
