package local

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// keyPrefix отделяет записи витрины от прочих данных в той же базе.
const keyPrefix = "storefront/"

// PebbleStorage — LocalStorage поверх PebbleDB: переживает перезапуск процесса
// так же, как localStorage браузера переживает перезагрузку страницы.
type PebbleStorage struct {
	db *pebble.DB
}

// OpenPebble открывает (или создаёт) базу в каталоге dir.
func OpenPebble(dir string) (*PebbleStorage, error) {
	opts := &pebble.Options{
		// Записи маленькие и редкие: небольшой memtable достаточно.
		MemTableSize: 4 << 20,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStorage{db: db}, nil
}

// Get возвращает копию значения или ErrStorageKeyNotFound.
func (p *PebbleStorage) Get(key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(keyPrefix + key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, domain.ErrStorageKeyNotFound
		}
		return nil, fmt.Errorf("pebble get %q: %w", key, err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// Set записывает значение с fsync WAL.
func (p *PebbleStorage) Set(key string, value []byte) error {
	if err := p.db.Set([]byte(keyPrefix+key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %q: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ.
func (p *PebbleStorage) Delete(key string) error {
	if err := p.db.Delete([]byte(keyPrefix+key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %q: %w", key, err)
	}
	return nil
}

// Keys перечисляет ключи витрины без префикса.
func (p *PebbleStorage) Keys() ([]string, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix[:len(keyPrefix)-1] + "0"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	var keys []string
	for it.First(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()[len(keyPrefix):]))
	}
	return keys, it.Error()
}

// Ping проверяет, что база открыта и читается.
func (p *PebbleStorage) Ping() error {
	if p == nil || p.db == nil {
		return errors.New("pebble storage is not initialized")
	}
	_, err := p.Get("__ping__")
	if err != nil && !errors.Is(err, domain.ErrStorageKeyNotFound) {
		return err
	}
	return nil
}

// Close закрывает базу.
func (p *PebbleStorage) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

var _ domain.LocalStorage = (*PebbleStorage)(nil)
