package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// DefaultPushDelay — пауза тишины перед отправкой корзины на сервер.
const DefaultPushDelay = time.Second

// MarkerKey — ключ локального хранилища с отметкой последнего серверного
// снимка, уже учтённого в локальной корзине.
const MarkerKey = "myshop_cart_synced"

// CartStore — часть cart.Store, нужная синхронизации.
type CartStore interface {
	State() domain.CartState
	MergeServerCart(items []domain.LineItem) domain.CartState
	Subscribe(fn cart.Listener) (unsubscribe func())
}

// Recorder принимает метрики синхронизации. Реализуется *metrics.CartMetrics.
type Recorder interface {
	RecordFetch(result string, duration time.Duration)
	RecordPush(result string, duration time.Duration)
	RecordPushDebounced()
}

// Options задаёт параметры Syncer.
type Options struct {
	Logger    *log.Entry
	Recorder  Recorder
	PushDelay time.Duration
	Storage   domain.LocalStorage
}

// Option настраивает Syncer.
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

// WithPushDelay задаёт задержку debounce для исходящей синхронизации.
func WithPushDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.PushDelay = delay
	}
}

// WithStorage сохраняет отметку синхронизации между запусками процесса.
// Без storage отметка живёт только в памяти Syncer.
func WithStorage(storage domain.LocalStorage) Option {
	return func(opts *Options) {
		opts.Storage = storage
	}
}

// syncMarker — серверный снимок, который уже содержится в локальной корзине:
// либо слитый при Login, либо отправленный последним push.
type syncMarker struct {
	UserID    string    `json:"userId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Syncer связывает локальную корзину с серверной копией.
//
// Входящий поток: при Login серверная корзина загружается один раз и сливается
// в стор через MergeServerCart, если этот снимок ещё не учтён локально
// (см. syncMarker). Исходящий поток: после каждого изменения
// корзины (пока сессия активна) полный список позиций отправляется на сервер
// после паузы тишины; новое изменение переносит отправку. Повторов нет, ошибки
// только логируются. Порядок между загрузкой и отправкой не гарантируется.
type Syncer struct {
	store     CartStore
	remote    domain.CartRemote
	debouncer *Debouncer
	logger    *log.Entry
	rec       Recorder
	storage   domain.LocalStorage

	markerMu sync.Mutex
	marker   syncMarker

	mu          sync.Mutex
	userID      string
	unsubscribe func()
	inflight    sync.WaitGroup
}

// NewSyncer создаёт Syncer и подписывается на изменения стора.
func NewSyncer(store CartStore, remote domain.CartRemote, options ...Option) *Syncer {
	opts := Options{PushDelay: DefaultPushDelay}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-sync")
	}
	if opts.PushDelay < 0 {
		opts.PushDelay = DefaultPushDelay
	}

	s := &Syncer{
		store:     store,
		remote:    remote,
		debouncer: NewDebouncer(opts.PushDelay),
		logger:    logger,
		rec:       opts.Recorder,
		storage:   opts.Storage,
	}
	s.marker = s.loadMarker()
	s.unsubscribe = store.Subscribe(s.onCartChanged)
	return s
}

// UserID возвращает пользователя активной сессии или пустую строку.
func (s *Syncer) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Login переводит синхронизацию в аутентифицированный режим: запускает
// однократную загрузку серверной корзины и планирует отправку локальной.
// Повторный Login того же пользователя ничего не делает.
func (s *Syncer) Login(userID string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}

	s.mu.Lock()
	prev := s.userID
	if prev == userID {
		s.mu.Unlock()
		return nil
	}
	s.userID = userID
	s.mu.Unlock()

	if prev != "" {
		s.debouncer.Cancel(prev)
	}

	s.logger.WithField("user_id", userID).Info("cart sync session started")

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.fetchAndMerge(context.Background(), userID)
	}()

	s.schedulePush(userID)
	return nil
}

// Logout завершает сессию и отменяет ожидающую отправку. Уже начатая
// загрузка серверной корзины не отменяется и сольётся в текущее состояние.
func (s *Syncer) Logout() {
	s.mu.Lock()
	prev := s.userID
	s.userID = ""
	s.mu.Unlock()

	if prev == "" {
		return
	}
	s.debouncer.Cancel(prev)
	s.logger.WithField("user_id", prev).Info("cart sync session ended")
}

// Flush немедленно отправляет корзину, отменяя отложенную отправку.
func (s *Syncer) Flush(ctx context.Context) error {
	userID := s.UserID()
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	s.debouncer.Cancel(userID)
	return s.push(ctx, userID)
}

// Push отправляет корзину от имени userID без открытия сессии.
func (s *Syncer) Push(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	return s.push(ctx, userID)
}

// Wait ждёт завершения начатых загрузок серверной корзины.
func (s *Syncer) Wait() {
	s.inflight.Wait()
}

// PushPending сообщает, запланирована ли отправка для активной сессии.
func (s *Syncer) PushPending() bool {
	userID := s.UserID()
	return userID != "" && s.debouncer.Pending(userID)
}

// Close отписывается от стора, отменяет отложенные отправки и ждёт
// завершения начатых сетевых вызовов.
func (s *Syncer) Close() {
	s.unsubscribe()
	s.debouncer.Stop()
	s.inflight.Wait()
}

func (s *Syncer) onCartChanged(domain.CartState) {
	userID := s.UserID()
	if userID == "" {
		return
	}
	s.schedulePush(userID)
}

func (s *Syncer) schedulePush(userID string) {
	replaced := s.debouncer.Schedule(userID, func() {
		if err := s.push(context.Background(), userID); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("error syncing cart to server")
		}
	})
	if replaced && s.rec != nil {
		s.rec.RecordPushDebounced()
	}
}

func (s *Syncer) fetchAndMerge(ctx context.Context, userID string) {
	logger := s.logger.WithField("user_id", userID)
	start := time.Now()

	server, err := s.remote.FetchCart(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		s.recordFetch(metrics.ResultNotFound, start)
		logger.Debug("no server cart to merge")
		return
	case err != nil:
		s.recordFetch(metrics.ResultError, start)
		logger.WithError(err).Warn("error fetching cart from server")
		return
	}
	s.recordFetch(metrics.ResultOK, start)

	if s.reflected(userID, server.UpdatedAt) {
		logger.WithField("updated_at", server.UpdatedAt).Debug("server cart already reflected locally, skipping merge")
		return
	}

	state := s.store.MergeServerCart(server.Items)
	s.remember(userID, server.UpdatedAt)
	logger.WithFields(log.Fields{
		"server_items": len(server.Items),
		"items":        len(state.Items),
		"total":        state.Total.String(),
	}).Info("server cart merged")
}

func (s *Syncer) push(ctx context.Context, userID string) error {
	items := s.store.State().Items
	start := time.Now()

	stored, err := s.remote.PushCart(ctx, userID, items)
	if err != nil {
		s.recordPush(metrics.ResultError, start)
		return err
	}
	s.recordPush(metrics.ResultOK, start)
	s.remember(userID, stored.UpdatedAt)
	s.logger.WithFields(log.Fields{
		"user_id": userID,
		"items":   len(items),
	}).Debug("cart pushed to server")
	return nil
}

func (s *Syncer) recordFetch(result string, start time.Time) {
	if s.rec != nil {
		s.rec.RecordFetch(result, time.Since(start))
	}
}

func (s *Syncer) recordPush(result string, start time.Time) {
	if s.rec != nil {
		s.rec.RecordPush(result, time.Since(start))
	}
}

// reflected сообщает, что снимок userID с этим UpdatedAt уже есть в локальной корзине.
func (s *Syncer) reflected(userID string, updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	s.markerMu.Lock()
	defer s.markerMu.Unlock()
	return s.marker.UserID == userID && s.marker.UpdatedAt.Equal(updatedAt)
}

// remember сдвигает отметку вперёд. Более старый снимок того же пользователя
// отметку не откатывает.
func (s *Syncer) remember(userID string, updatedAt time.Time) {
	if updatedAt.IsZero() {
		return
	}

	s.markerMu.Lock()
	defer s.markerMu.Unlock()
	if s.marker.UserID == userID && !updatedAt.After(s.marker.UpdatedAt) {
		return
	}
	s.marker = syncMarker{UserID: userID, UpdatedAt: updatedAt}

	if s.storage == nil {
		return
	}
	payload, err := json.Marshal(s.marker)
	if err == nil {
		err = s.storage.Set(MarkerKey, payload)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to save cart sync marker")
	}
}

func (s *Syncer) loadMarker() syncMarker {
	if s.storage == nil {
		return syncMarker{}
	}
	raw, err := s.storage.Get(MarkerKey)
	if err != nil {
		if !errors.Is(err, domain.ErrStorageKeyNotFound) {
			s.logger.WithError(err).Warn("failed to read cart sync marker")
		}
		return syncMarker{}
	}
	var marker syncMarker
	if err := json.Unmarshal(raw, &marker); err != nil {
		s.logger.WithError(err).Warn("cart sync marker is unreadable, ignoring")
		return syncMarker{}
	}
	return marker
}
