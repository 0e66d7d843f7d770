package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// StorageKey — ключ, под которым корзина хранится в локальном хранилище.
const StorageKey = "myshop_cart"

// Recorder принимает метрики стора. Реализуется *metrics.CartMetrics.
type Recorder interface {
	RecordOperation(action string, applied bool)
	RecordPersistFailure()
	RecordLoadFailure()
	ObserveCart(units int, total float64)
}

// Listener вызывается после каждого применённого перехода с новым состоянием.
type Listener func(state domain.CartState)

// Options задаёт параметры Store.
type Options struct {
	Logger   *log.Entry
	Recorder Recorder
	Key      string
}

// Option настраивает Store.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithRecorder подключает метрики.
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.Recorder = recorder
	}
}

// WithKey переопределяет ключ хранения (например, отдельная корзина на профиль).
func WithKey(key string) Option {
	return func(opts *Options) {
		opts.Key = key
	}
}

// Store — владелец клиентской корзины. Каждый переход выполняется атомарно
// относительно других, после применённого перехода состояние сохраняется
// в LocalStorage и рассылается подписчикам.
type Store struct {
	mu      sync.Mutex
	state   domain.CartState
	storage domain.LocalStorage
	key     string
	logger  *log.Entry
	rec     Recorder

	// notifyMu берётся до отпускания mu: подписчики получают состояния
	// в порядке переходов.
	notifyMu    sync.Mutex
	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// storedCart — формат записи в хранилище. Total пишется для совместимости,
// но при чтении игнорируется.
type storedCart struct {
	Items []domain.LineItem `json:"items"`
	Total json.RawMessage   `json:"total,omitempty"`
}

// NewStore создаёт стор и однократно поднимает состояние из storage.
// storage может быть nil: тогда корзина живёт только в памяти.
func NewStore(storage domain.LocalStorage, options ...Option) *Store {
	opts := Options{Key: StorageKey}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-store")
	}
	if opts.Key == "" {
		opts.Key = StorageKey
	}

	s := &Store{
		storage:   storage,
		key:       opts.Key,
		logger:    logger,
		rec:       opts.Recorder,
		listeners: make(map[uint64]Listener),
	}
	s.state = s.load()
	s.observe(s.state)
	return s
}

// Load читает корзину из storage. Отсутствующая, нечитаемая или повреждённая
// запись даёт пустую корзину и ошибку для диагностики; Total пересчитывается.
func Load(storage domain.LocalStorage, key string) (domain.CartState, error) {
	if storage == nil {
		return domain.NewCartState(nil), nil
	}

	raw, err := storage.Get(key)
	if err != nil {
		if errors.Is(err, domain.ErrStorageKeyNotFound) {
			return domain.NewCartState(nil), nil
		}
		return domain.NewCartState(nil), fmt.Errorf("read stored cart: %w", err)
	}

	var stored storedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.NewCartState(nil), fmt.Errorf("decode stored cart: %w", err)
	}
	return domain.NewCartState(stored.Items), nil
}

func (s *Store) load() domain.CartState {
	state, err := Load(s.storage, s.key)
	if err != nil {
		s.logger.WithError(err).Warn("stored cart is unreadable, starting with empty cart")
		if s.rec != nil {
			s.rec.RecordLoadFailure()
		}
	}
	return state
}

// State возвращает копию текущего состояния.
func (s *Store) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Add добавляет товар в корзину.
func (s *Store) Add(product domain.Product) domain.CartState {
	return s.Dispatch(AddItem{Product: product})
}

// Remove удаляет позицию; для отсутствующего ID ничего не делает.
func (s *Store) Remove(productID string) domain.CartState {
	return s.Dispatch(RemoveItem{ProductID: productID})
}

// UpdateQuantity заменяет количество; quantity < 1 оставляет состояние без изменений.
func (s *Store) UpdateQuantity(productID string, quantity int) domain.CartState {
	return s.Dispatch(UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// Clear сбрасывает корзину.
func (s *Store) Clear() domain.CartState {
	return s.Dispatch(ClearCart{})
}

// MergeServerCart аддитивно сливает серверные позиции с локальными.
// Повторный merge того же снимка удвоит количества: вызывающий отвечает
// за однократный вызов на одну загрузку.
func (s *Store) MergeServerCart(items []domain.LineItem) domain.CartState {
	return s.Dispatch(MergeCart{Items: items})
}

// Dispatch применяет произвольный action, сохраняет и оповещает подписчиков.
func (s *Store) Dispatch(action Action) domain.CartState {
	s.mu.Lock()
	next, applied := Reduce(s.state, action)
	if applied {
		s.state = next
		s.persist(next)
		s.observe(next)
		s.notifyMu.Lock()
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.RecordOperation(action.Name(), applied)
	}
	s.logger.WithFields(log.Fields{
		"action":  action.Name(),
		"applied": applied,
		"items":   len(snapshot.Items),
		"total":   snapshot.Total.String(),
	}).Debug("cart transition")

	if applied {
		s.notify(snapshot)
		s.notifyMu.Unlock()
	}
	return snapshot
}

// persist и observe вызываются под s.mu: записи в storage и gauges идут в порядке переходов.
func (s *Store) persist(state domain.CartState) {
	if s.storage == nil {
		return
	}

	payload, err := json.Marshal(storedCart{Items: state.Items, Total: encodeTotal(state)})
	if err == nil {
		err = s.storage.Set(s.key, payload)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to save cart to local storage")
		if s.rec != nil {
			s.rec.RecordPersistFailure()
		}
	}
}

func encodeTotal(state domain.CartState) json.RawMessage {
	raw, err := state.Total.MarshalJSON()
	if err != nil {
		return nil
	}
	return raw
}

func (s *Store) observe(state domain.CartState) {
	if s.rec == nil {
		return
	}
	total, _ := state.Total.Float64()
	s.rec.ObserveCart(domain.ItemCount(state.Items), total)
}

// Subscribe регистрирует подписчика и возвращает функцию отписки.
// Подписчики вызываются синхронно в порядке переходов; читать State из
// подписчика можно, вызывать Dispatch синхронно нельзя.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) notify(state domain.CartState) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(state.Clone())
	}
}
