package domain

import "context"

// LocalStorage — долговременное клиентское key-value хранилище.
type LocalStorage interface {
	// Get возвращает значение по ключу или ErrStorageKeyNotFound.
	Get(key string) ([]byte, error)
	// Set перезаписывает значение по ключу.
	Set(key string, value []byte) error
	// Delete удаляет ключ; отсутствие ключа ошибкой не считается.
	Delete(key string) error
}

// CartRepository хранит серверные корзины пользователей.
type CartRepository interface {
	// Get возвращает корзину пользователя или ErrCartNotFound.
	Get(ctx context.Context, userID string) (ServerCart, error)
	// Save перезаписывает корзину пользователя целиком.
	Save(ctx context.Context, cart ServerCart) error
	// Delete удаляет корзину пользователя.
	Delete(ctx context.Context, userID string) error
}

// OrderRepository хранит историю заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ или возвращает ErrOrderExists.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает страницу заказов пользователя, новые первыми.
	// page начинается с 1; страница за концом списка пуста.
	ListByUser(ctx context.Context, userID string, page int) (OrderPage, error)
}

// CartRemote — клиентская сторона сетевой границы синхронизации.
type CartRemote interface {
	// FetchCart загружает серверную корзину пользователя вместе с UpdatedAt снимка.
	FetchCart(ctx context.Context, userID string) (ServerCart, error)
	// PushCart отправляет полный список позиций и возвращает сохранённый сервером снимок.
	PushCart(ctx context.Context, userID string, items []LineItem) (ServerCart, error)
}

// EventPublisher публикует доменные события во внешний брокер.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}
