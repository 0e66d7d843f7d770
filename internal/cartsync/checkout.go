package cartsync

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderPlacer оформляет заказ на сервере.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, req domain.CheckoutRequest) (domain.Order, error)
}

// CheckoutStore — часть cart.Store, нужная для оформления.
type CheckoutStore interface {
	State() domain.CartState
	Clear() domain.CartState
}

// Checkout оформляет текущую корзину в заказ и очищает её.
// Пустая корзина и неполный адрес отклоняются без обращения к серверу.
// При ошибке сервера корзина остаётся нетронутой.
func Checkout(ctx context.Context, store CheckoutStore, placer OrderPlacer, userID string, address domain.ShippingAddress) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserIDRequired
	}
	state := store.State()
	if len(state.Items) == 0 {
		return domain.Order{}, domain.ErrCartEmpty
	}
	if err := address.Validate(); err != nil {
		return domain.Order{}, err
	}

	order, err := placer.PlaceOrder(ctx, userID, domain.CheckoutRequest{
		Items:           state.Items,
		ShippingAddress: address,
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("checkout: %w", err)
	}

	store.Clear()
	return order, nil
}

var _ OrderPlacer = (*Client)(nil)
