package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (c *Client) ordersURL(userID string) string {
	return c.baseURL + "/api/orders/" + url.PathEscape(userID)
}

// PlaceOrder отправляет позиции корзины и адрес, возвращает созданный заказ.
func (c *Client) PlaceOrder(ctx context.Context, userID string, req domain.CheckoutRequest) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserIDRequired
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode checkout request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.ordersURL(userID), bytes.NewReader(payload))
	if err != nil {
		return domain.Order{}, fmt.Errorf("build checkout request: %w", err)
	}

	var order domain.Order
	if err := c.doJSON(httpReq, &order); err != nil {
		return domain.Order{}, fmt.Errorf("place order: %w", err)
	}
	return order, nil
}

// ListOrders возвращает страницу истории заказов (page с 1).
func (c *Client) ListOrders(ctx context.Context, userID string, page int) (domain.OrderPage, error) {
	if userID == "" {
		return domain.OrderPage{}, domain.ErrUserIDRequired
	}
	if page < 1 {
		return domain.OrderPage{}, domain.ErrPageInvalid
	}

	target := c.ordersURL(userID) + "?page=" + strconv.Itoa(page)
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("build list orders request: %w", err)
	}

	var result domain.OrderPage
	if err := c.doJSON(req, &result); err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	return result, nil
}

// GetOrder возвращает заказ пользователя. 404 превращается в domain.ErrOrderNotFound.
func (c *Client) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserIDRequired
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.ordersURL(userID)+"/"+url.PathEscape(orderID), nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("build get order request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err := checkStatus(resp); err != nil {
		return domain.Order{}, err
	}
	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order response: %w", err)
	}
	return order, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
