package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты синхронизации для label "result".
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

// CartMetrics содержит метрики клиентской корзины и её синхронизации.
type CartMetrics struct {
	operations      *prometheus.CounterVec
	persistFailures prometheus.Counter
	loadFailures    prometheus.Counter

	cartItems prometheus.Gauge
	cartTotal prometheus.Gauge

	syncFetches  *prometheus.CounterVec
	syncPushes   *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	pushesDebounced prometheus.Counter
}

// NewCartMetrics создаёт метрики в глобальном реестре Prometheus.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer создаёт метрики в заданном реестре (удобно для тестов).
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of cart store operations grouped by action and outcome.",
		}, []string{"action", "applied"}),
		persistFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of failed writes of the cart to local storage.",
		}),
		loadFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_load_failures_total",
			Help: "Total number of unreadable or malformed stored carts found at startup.",
		}),
		cartItems: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Number of units currently in the cart.",
		}),
		cartTotal: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_total",
			Help: "Current cart total in currency units.",
		}),
		syncFetches: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_sync_fetches_total",
			Help: "Total number of server cart fetches grouped by result.",
		}, []string{"result"}),
		syncPushes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_sync_pushes_total",
			Help: "Total number of server cart pushes grouped by result.",
		}, []string{"result"}),
		syncDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_cart_sync_duration_seconds",
			Help:    "Duration of cart sync calls in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"direction"}),
		pushesDebounced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_sync_pushes_debounced_total",
			Help: "Total number of scheduled pushes replaced by a newer mutation before firing.",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		return reuseExisting[prometheus.Counter](err, opts.Name)
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		return reuseExisting[*prometheus.CounterVec](err, opts.Name)
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		return reuseExisting[prometheus.Gauge](err, opts.Name)
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		return reuseExisting[*prometheus.HistogramVec](err, opts.Name)
	}
	return collector
}

// reuseExisting возвращает уже зарегистрированный коллектор того же типа,
// иначе паникует: повторная регистрация с другим типом считается ошибкой программиста.
func reuseExisting[T any](err error, name string) T {
	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	existing, ok := alreadyRegistered.ExistingCollector.(T)
	if !ok {
		panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
	}
	return existing
}

// RecordOperation учитывает операцию над корзиной.
func (m *CartMetrics) RecordOperation(action string, applied bool) {
	m.operations.WithLabelValues(action, fmt.Sprintf("%t", applied)).Inc()
}

// RecordPersistFailure учитывает неудачную запись в локальное хранилище.
func (m *CartMetrics) RecordPersistFailure() {
	m.persistFailures.Inc()
}

// RecordLoadFailure учитывает повреждённую или нечитаемую сохранённую корзину.
func (m *CartMetrics) RecordLoadFailure() {
	m.loadFailures.Inc()
}

// ObserveCart обновляет gauge-метрики по текущему состоянию.
func (m *CartMetrics) ObserveCart(units int, total float64) {
	m.cartItems.Set(float64(units))
	m.cartTotal.Set(total)
}

// RecordFetch учитывает загрузку серверной корзины.
func (m *CartMetrics) RecordFetch(result string, duration time.Duration) {
	m.syncFetches.WithLabelValues(result).Inc()
	m.syncDuration.WithLabelValues("fetch").Observe(duration.Seconds())
}

// RecordPush учитывает отправку корзины на сервер.
func (m *CartMetrics) RecordPush(result string, duration time.Duration) {
	m.syncPushes.WithLabelValues(result).Inc()
	m.syncDuration.WithLabelValues("push").Observe(duration.Seconds())
}

// RecordPushDebounced учитывает отменённую отложенную отправку.
func (m *CartMetrics) RecordPushDebounced() {
	m.pushesDebounced.Inc()
}
