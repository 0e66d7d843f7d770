package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// placeOrder оформляет присланные позиции в заказ и удаляет серверную корзину.
func (h *handler) placeOrder(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: []string{err.Error()}})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrCartEmpty.Error()})
		return
	}
	if errs := domain.ValidateLineItems(req.Items); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid cart items", Details: validationDetails(errs)})
		return
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid shipping address", Details: []string{err.Error()}})
		return
	}

	order, err := domain.NewOrder(uuid.NewString(), userID, req.Items, req.ShippingAddress, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.orders.Create(c.Request.Context(), order); err != nil {
		if errors.Is(err, domain.ErrOrderExists) {
			c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		h.internalError(c, "create order", userID, err)
		return
	}

	// Заказ уже сохранён: корзину, которую не удалось удалить, клиент перезапишет при следующем push.
	if err := h.repo.Delete(c.Request.Context(), userID); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"order_id": order.ID,
		}).Warn("failed to delete cart after checkout")
	}

	h.publish(userID, kafka.NewOrderPlacedEvent(order))
	c.JSON(http.StatusCreated, order)
}

func (h *handler) listOrders(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrPageInvalid.Error()})
		return
	}

	result, err := h.orders.ListByUser(c.Request.Context(), userID, page)
	if err != nil {
		h.internalError(c, "list orders", userID, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) getOrder(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		h.internalError(c, "get order", userID, err)
		return
	}
	// Чужой заказ неотличим от отсутствующего.
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, errorResponse{Error: domain.ErrOrderNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}
