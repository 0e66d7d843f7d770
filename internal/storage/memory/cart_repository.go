package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory — простая in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	carts map[string]domain.ServerCart
}

// NewCartRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		carts: make(map[string]domain.ServerCart),
	}
}

// Get возвращает корзину или ErrCartNotFound.
func (r *cartRepositoryInMemory) Get(_ context.Context, userID string) (domain.ServerCart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[userID]
	if !ok {
		return domain.ServerCart{}, domain.ErrCartNotFound
	}
	return cloneCart(c), nil
}

// Save перезаписывает корзину пользователя.
func (r *cartRepositoryInMemory) Save(_ context.Context, c domain.ServerCart) error {
	if c.UserID == "" {
		return domain.ErrUserIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Храним глубокую копию: внешние мутации позиций и их товаров не меняют репозиторий.
	r.carts[c.UserID] = cloneCart(c)
	return nil
}

// Delete удаляет корзину; отсутствие корзины ошибкой не считается.
func (r *cartRepositoryInMemory) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

func cloneCart(c domain.ServerCart) domain.ServerCart {
	c.Items = domain.CloneLineItems(c.Items)
	return c
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
