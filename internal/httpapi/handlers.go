package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type handler struct {
	repo      domain.CartRepository
	orders    domain.OrderRepository
	publisher domain.EventPublisher
	topic     string
	metrics   *metrics.APIMetrics
	logger    *log.Entry
}

func (h *handler) getCart(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	cart, err := h.repo.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		h.internalError(c, "get cart", userID, err)
		return
	}

	c.JSON(http.StatusOK, cart.ToResponse())
}

func (h *handler) putCart(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req domain.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: []string{err.Error()}})
		return
	}
	if req.Items == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "items is required"})
		return
	}
	if errs := domain.ValidateLineItems(req.Items); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid cart items", Details: validationDetails(errs)})
		return
	}

	// Точность updatedAt совпадает с timestamptz, чтобы клиент узнавал свой снимок при GET.
	cart := domain.ServerCart{
		UserID:    userID,
		Items:     req.Items,
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := h.repo.Save(c.Request.Context(), cart); err != nil {
		h.internalError(c, "save cart", userID, err)
		return
	}

	h.publish(userID, kafka.NewCartUpdatedEvent(cart))
	c.JSON(http.StatusOK, cart.ToResponse())
}

func (h *handler) deleteCart(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), userID); err != nil {
		h.internalError(c, "delete cart", userID, err)
		return
	}

	h.publish(userID, kafka.NewCartDeletedEvent(userID))
	c.Status(http.StatusNoContent)
}

// publish отправляет событие после успешной записи. Сбой брокера не влияет на ответ клиенту.
func (h *handler) publish(userID string, event *kafka.CartEvent) {
	if h.publisher == nil {
		return
	}

	result := metrics.ResultOK
	if err := h.publisher.PublishEvent(h.topic, userID, event); err != nil {
		result = metrics.ResultError
		h.logger.WithError(err).WithFields(log.Fields{
			"user_id":    userID,
			"event_type": event.EventType,
		}).Warn("failed to publish event")
	}
	if h.metrics != nil {
		h.metrics.RecordPublish(result)
	}
}

func validationDetails(errs []error) []string {
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		details = append(details, err.Error())
	}
	return details
}

func (h *handler) internalError(c *gin.Context, op, userID string, err error) {
	h.logger.WithError(err).WithField("user_id", userID).Errorf("%s failed", op)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func userIDParam(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrUserIDRequired.Error()})
		return "", false
	}
	return userID, true
}
