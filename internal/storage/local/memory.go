package local

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MemoryStorage — LocalStorage в памяти процесса (для тестов и режима без диска).
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage создаёт пустое in-memory хранилище.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get возвращает копию значения или ErrStorageKeyNotFound.
func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrStorageKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set сохраняет копию значения.
func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete удаляет ключ.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

var _ domain.LocalStorage = (*MemoryStorage)(nil)
