package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxErrorBodyBytes    = 512
	headerRequestID      = "X-Request-ID"
)

// Client — HTTP-реализация CartRemote поверх /api/cart/{userId}
// и клиент заказов /api/orders/{userId}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента. httpClient может быть nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) cartURL(userID string) string {
	return c.baseURL + "/api/cart/" + url.PathEscape(userID)
}

// FetchCart выполняет GET и возвращает серверную корзину.
// 404 превращается в domain.ErrCartNotFound.
func (c *Client) FetchCart(ctx context.Context, userID string) (domain.ServerCart, error) {
	if userID == "" {
		return domain.ServerCart{}, domain.ErrUserIDRequired
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.cartURL(userID), nil)
	if err != nil {
		return domain.ServerCart{}, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ServerCart{}, fmt.Errorf("fetch cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ServerCart{}, domain.ErrCartNotFound
	}
	cart, err := decodeCart(resp)
	if errors.Is(err, io.EOF) {
		return domain.ServerCart{}, fmt.Errorf("decode cart response: %w", err)
	}
	return cart, err
}

// PushCart выполняет PUT полного списка позиций и возвращает снимок,
// который сервер сохранил. Пустое тело ответа даёт снимок без UpdatedAt.
func (c *Client) PushCart(ctx context.Context, userID string, items []domain.LineItem) (domain.ServerCart, error) {
	if userID == "" {
		return domain.ServerCart{}, domain.ErrUserIDRequired
	}
	if items == nil {
		items = []domain.LineItem{}
	}

	payload, err := json.Marshal(domain.CartRequest{Items: items})
	if err != nil {
		return domain.ServerCart{}, fmt.Errorf("encode cart request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.cartURL(userID), bytes.NewReader(payload))
	if err != nil {
		return domain.ServerCart{}, fmt.Errorf("build push request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ServerCart{}, fmt.Errorf("push cart: %w", err)
	}
	defer resp.Body.Close()

	cart, err := decodeCart(resp)
	if errors.Is(err, io.EOF) {
		return domain.ServerCart{UserID: userID, Items: items}, nil
	}
	return cart, err
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent("cartsync"))
	req.Header.Set(headerRequestID, uuid.NewString())
	return req, nil
}

func decodeCart(resp *http.Response) (domain.ServerCart, error) {
	if err := checkStatus(resp); err != nil {
		return domain.ServerCart{}, err
	}

	var body domain.CartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ServerCart{}, err
		}
		return domain.ServerCart{}, fmt.Errorf("decode cart response: %w", err)
	}
	return domain.ServerCart{UserID: body.UserID, Items: body.Items, UpdatedAt: body.UpdatedAt}, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
}

var _ domain.CartRemote = (*Client)(nil)
