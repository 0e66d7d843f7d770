package cart

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/local"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// failingStorage отдаёт заранее заданные ошибки.
type failingStorage struct {
	getErr error
	setErr error
	mu     sync.Mutex
	sets   int
}

func (f *failingStorage) Get(string) ([]byte, error) { return nil, f.getErr }

func (f *failingStorage) Set(string, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	return f.setErr
}

func (f *failingStorage) Delete(string) error { return nil }

func TestStore_Scenario(t *testing.T) {
	store := NewStore(local.NewMemoryStorage(), WithLogger(loggerForTests()))

	store.Add(product("p1", 10))
	store.Add(product("p1", 10))
	state := store.UpdateQuantity("p1", 5)

	require.Len(t, state.Items, 1)
	require.Equal(t, 5, state.Items[0].Quantity)
	require.True(t, state.Total.Equal(decimal.NewFromInt(50)))

	state = store.Remove("p1")
	require.Empty(t, state.Items)
	require.True(t, state.Total.IsZero())
}

func TestStore_MergeScenario(t *testing.T) {
	store := NewStore(local.NewMemoryStorage(), WithLogger(loggerForTests()))
	store.Add(product("p1", 10))

	state := store.MergeServerCart([]domain.LineItem{lineItem("p1", 10, 2)})
	require.Len(t, state.Items, 1)
	require.Equal(t, 3, state.Items[0].Quantity)
	require.True(t, state.Total.Equal(decimal.NewFromInt(30)))
}

func TestStore_PersistsAndRehydrates(t *testing.T) {
	storage := local.NewMemoryStorage()
	first := NewStore(storage, WithLogger(loggerForTests()))
	first.Add(product("a", 3))
	first.Add(product("b", 4))
	first.UpdateQuantity("b", 5)
	want := first.State()

	second := NewStore(storage, WithLogger(loggerForTests()))
	got := second.State()

	require.Equal(t, len(want.Items), len(got.Items))
	for i := range want.Items {
		require.Equal(t, want.Items[i].ID, got.Items[i].ID)
		require.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		require.True(t, want.Items[i].Price.Equal(got.Items[i].Price))
	}
	require.True(t, got.Total.Equal(want.Total))
	require.True(t, got.Total.Equal(decimal.NewFromInt(23)))
}

func TestStore_StoredTotalIsIgnored(t *testing.T) {
	storage := local.NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, []byte(
		`{"items":[{"id":"p1","name":"x","price":10,"quantity":2}],"total":99999}`,
	)))

	store := NewStore(storage, WithLogger(loggerForTests()))
	require.True(t, store.State().Total.Equal(decimal.NewFromInt(20)))
}

func TestStore_MalformedStorageStartsEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewCartMetricsWithRegisterer(reg)

	cases := map[string][]byte{
		"garbage":      []byte("not-json"),
		"wrong shape":  []byte(`{"items":"nope"}`),
		"null payload": []byte(`null`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			storage := local.NewMemoryStorage()
			require.NoError(t, storage.Set(StorageKey, payload))

			store := NewStore(storage, WithLogger(loggerForTests()), WithRecorder(rec))
			state := store.State()
			require.Empty(t, state.Items)
			require.True(t, state.Total.IsZero())
		})
	}
}

func TestStore_UnreadableStorageStartsEmpty(t *testing.T) {
	store := NewStore(&failingStorage{getErr: errors.New("disk on fire")}, WithLogger(loggerForTests()))
	require.Empty(t, store.State().Items)
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	storage := &failingStorage{getErr: domain.ErrStorageKeyNotFound, setErr: errors.New("quota exceeded")}
	store := NewStore(storage, WithLogger(loggerForTests()))

	state := store.Add(product("p1", 10))
	require.Len(t, state.Items, 1, "in-memory state stays authoritative")
	require.Equal(t, 1, storage.sets)
}

func TestStore_RejectedUpdateDoesNotPersistOrNotify(t *testing.T) {
	storage := &failingStorage{getErr: domain.ErrStorageKeyNotFound}
	store := NewStore(storage, WithLogger(loggerForTests()))
	store.Add(product("p1", 10))

	notified := 0
	unsubscribe := store.Subscribe(func(domain.CartState) { notified++ })
	defer unsubscribe()

	before := store.State()
	after := store.UpdateQuantity("p1", 0)
	require.Equal(t, before.Items, after.Items)
	require.Equal(t, 0, notified)
	require.Equal(t, 1, storage.sets)
}

func TestStore_ClearPersistsEmptyCart(t *testing.T) {
	storage := local.NewMemoryStorage()
	store := NewStore(storage, WithLogger(loggerForTests()))
	store.Add(product("p1", 10))
	store.Clear()

	raw, err := storage.Get(StorageKey)
	require.NoError(t, err)

	var stored struct {
		Items []domain.LineItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.NotNil(t, stored.Items)
	require.Empty(t, stored.Items)
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	store := NewStore(nil, WithLogger(loggerForTests()))

	var got []int
	unsubscribe := store.Subscribe(func(state domain.CartState) {
		got = append(got, domain.ItemCount(state.Items))
	})

	store.Add(product("a", 1))
	store.Add(product("a", 1))
	unsubscribe()
	unsubscribe()
	store.Add(product("a", 1))

	require.Equal(t, []int{1, 2}, got)
}

func TestStore_CustomKey(t *testing.T) {
	storage := local.NewMemoryStorage()
	store := NewStore(storage, WithKey("cart:alice"), WithLogger(loggerForTests()))
	store.Add(product("a", 1))

	_, err := storage.Get("cart:alice")
	require.NoError(t, err)
	_, err = storage.Get(StorageKey)
	require.ErrorIs(t, err, domain.ErrStorageKeyNotFound)
}

func TestStore_ConcurrentAddsKeepInvariant(t *testing.T) {
	store := NewStore(local.NewMemoryStorage(), WithLogger(loggerForTests()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add(product("p1", 2))
		}()
	}
	wg.Wait()

	state := store.State()
	require.Len(t, state.Items, 1)
	require.Equal(t, 50, state.Items[0].Quantity)
	require.True(t, state.Total.Equal(decimal.NewFromInt(100)))
}

// gaugeRecorder запоминает последнее наблюдение корзины.
type gaugeRecorder struct {
	mu    sync.Mutex
	units int
}

func (g *gaugeRecorder) RecordOperation(string, bool) {}
func (g *gaugeRecorder) RecordPersistFailure()        {}
func (g *gaugeRecorder) RecordLoadFailure()           {}

func (g *gaugeRecorder) ObserveCart(units int, _ float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.units = units
}

func TestStore_ConcurrentDispatchKeepsTransitionOrder(t *testing.T) {
	rec := &gaugeRecorder{}
	store := NewStore(local.NewMemoryStorage(), WithLogger(loggerForTests()), WithRecorder(rec))

	var (
		mu   sync.Mutex
		seen []int
	)
	unsubscribe := store.Subscribe(func(state domain.CartState) {
		mu.Lock()
		seen = append(seen, domain.ItemCount(state.Items))
		mu.Unlock()
	})
	defer unsubscribe()

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add(product("p1", 1))
		}()
	}
	wg.Wait()

	require.Len(t, seen, writers)
	for i, units := range seen {
		require.Equal(t, i+1, units, "listener saw transitions out of order")
	}
	require.Equal(t, writers, rec.units)
}

func TestStore_ListenerCanReadState(t *testing.T) {
	store := NewStore(nil, WithLogger(loggerForTests()))

	var observed int
	unsubscribe := store.Subscribe(func(domain.CartState) {
		observed = domain.ItemCount(store.State().Items)
	})
	defer unsubscribe()

	store.Add(product("a", 1))
	require.Equal(t, 1, observed)
}

func TestLoad_NilStorage(t *testing.T) {
	state, err := Load(nil, StorageKey)
	require.NoError(t, err)
	require.Empty(t, state.Items)
}
