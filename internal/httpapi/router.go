package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const headerRequestID = "X-Request-ID"

// Options настраивает HTTP API корзин.
type Options struct {
	Logger         *log.Entry
	Metrics        *metrics.APIMetrics
	Publisher      domain.EventPublisher
	Orders         domain.OrderRepository
	Topic          string
	AllowedOrigins []string
}

// Option изменяет Options.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithMetrics(m *metrics.APIMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithPublisher включает публикацию событий корзины в topic.
func WithPublisher(publisher domain.EventPublisher, topic string) Option {
	return func(o *Options) {
		o.Publisher = publisher
		o.Topic = topic
	}
}

// WithOrders подключает маршруты /api/orders/:userID.
func WithOrders(orders domain.OrderRepository) Option {
	return func(o *Options) { o.Orders = orders }
}

// WithAllowedOrigins разрешает CORS-запросы витрины с указанных origin.
func WithAllowedOrigins(origins []string) Option {
	return func(o *Options) { o.AllowedOrigins = origins }
}

// NewRouter собирает gin-роутер с маршрутами /api/cart/:userID.
// Маршруты заказов появляются только вместе с WithOrders.
func NewRouter(repo domain.CartRepository, opts ...Option) *gin.Engine {
	options := Options{Topic: kafka.TopicCartEvents}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.WithField("component", "http-api")
	}
	if options.Topic == "" {
		options.Topic = kafka.TopicCartEvents
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestMiddleware(options.Logger, options.Metrics))
	if len(options.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  options.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerRequestID},
			ExposeHeaders: []string{"Content-Length", headerRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}

	h := &handler{
		repo:      repo,
		orders:    options.Orders,
		publisher: options.Publisher,
		topic:     options.Topic,
		metrics:   options.Metrics,
		logger:    options.Logger,
	}

	api := router.Group("/api")
	api.GET("/cart/:userID", h.getCart)
	api.PUT("/cart/:userID", h.putCart)
	api.DELETE("/cart/:userID", h.deleteCart)
	if options.Orders != nil {
		api.POST("/orders/:userID", h.placeOrder)
		api.GET("/orders/:userID", h.listOrders)
		api.GET("/orders/:userID/:orderID", h.getOrder)
	}

	return router
}

// requestMiddleware проставляет X-Request-ID, пишет access-лог и метрики.
func requestMiddleware(logger *log.Entry, m *metrics.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()
		if m != nil {
			m.RecordRequest(c.Request.Method, route, status, duration)
		}

		entry := logger.WithFields(log.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"route":       route,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
		})
		if status >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
