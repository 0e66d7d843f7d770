package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события корзины.
type EventType string

const (
	EventTypeCartUpdated EventType = "cart.updated"
	EventTypeCartDeleted EventType = "cart.deleted"
	EventTypeOrderPlaced EventType = "order.placed"
)

// TopicCartEvents — topic по умолчанию для изменений серверных корзин.
const TopicCartEvents = "storefront.cart.events"

// CartEvent публикуется после сохранения или удаления корзины пользователя
// и после оформления заказа из неё (OrderID заполнен только для order.placed).
// Total сериализуется строкой, как и цены в API.
type CartEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id,omitempty"`
	ItemCount int       `json:"item_count"`
	Total     string    `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCartUpdatedEvent собирает событие по сохранённой корзине.
func NewCartUpdatedEvent(cart domain.ServerCart) *CartEvent {
	return &CartEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeCartUpdated,
		UserID:    cart.UserID,
		ItemCount: domain.ItemCount(cart.Items),
		Total:     domain.CalculateTotal(cart.Items).StringFixed(2),
		Timestamp: time.Now().UTC(),
	}
}

// NewCartDeletedEvent собирает событие удаления корзины.
func NewCartDeletedEvent(userID string) *CartEvent {
	return &CartEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeCartDeleted,
		UserID:    userID,
		Total:     "0.00",
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderPlacedEvent собирает событие оформления заказа.
func NewOrderPlacedEvent(order domain.Order) *CartEvent {
	return &CartEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeOrderPlaced,
		UserID:    order.UserID,
		OrderID:   order.ID,
		ItemCount: order.ItemCount(),
		Total:     order.Total.StringFixed(2),
		Timestamp: time.Now().UTC(),
	}
}
