package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

const maxResponseBytes = 4 << 20

type Config struct {
	BaseURL string
	// Timeout bounds a whole request, including reading the body.
	Timeout time.Duration
	// MaxFailures consecutive transport failures open the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
}

type rawResponse struct {
	status int
	body   []byte
}

// Client talks to the marketplace REST backend. Every call passes through a
// circuit breaker; an open circuit fails fast with a NetworkError. Calls are
// never retried.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[rawResponse]
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[rawResponse](gobreaker.Settings{
		Name:        "marketplace-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Healthy reports whether the circuit is closed.
func (c *Client) Healthy() bool {
	return c.breaker.State() == gobreaker.StateClosed
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	var resp loginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return domain.Session{}, err
	}
	if resp.User.Token == "" {
		return domain.Session{}, &domain.ApplicationError{Op: "login", Message: "login response without token"}
	}
	return resp.User.toDomain(), nil
}

func (c *Client) FetchCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	var resp cartResponse
	if err := c.do(ctx, "fetch cart", http.MethodGet, "/cart", token, nil, &resp); err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(resp.Lines))
	for _, l := range resp.Lines {
		lines = append(lines, l.toDomain())
	}
	return lines, nil
}

func (c *Client) UpdateCartQuantity(ctx context.Context, token, lineID string, quantity int) error {
	path := "/cart/" + url.PathEscape(lineID)
	return c.do(ctx, "update cart quantity", http.MethodPut, path, token, updateQuantityRequest{Quantity: quantity}, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) error {
	body := placeOrderRequest{
		ItemID:        req.ItemID,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		Address:       req.Address,
		Subtotal:      req.LineSubtotal,
		Total:         req.GrandTotal,
		ShippingMode:  string(req.ShippingMode),
		Lat:           req.Lat,
		Lng:           req.Lng,
	}
	return c.do(ctx, "place order", http.MethodPost, "/orders", req.Token, body, nil)
}

func (c *Client) FetchTransactionHistory(ctx context.Context, token, userID string) ([]domain.TransactionRecord, error) {
	var resp historyResponse
	path := "/transactions?" + url.Values{"user_id": {userID}}.Encode()
	if err := c.do(ctx, "fetch transaction history", http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]domain.TransactionRecord, 0, len(resp.History))
	for _, t := range resp.History {
		records = append(records, t.toDomain())
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		payload = b
	}

	resp, err := c.breaker.Execute(func() (rawResponse, error) {
		return c.send(ctx, method, path, token, payload)
	})
	if err != nil {
		// A 5xx still counts against the breaker, but a readable error
		// envelope carries a server message that must reach the caller.
		var env envelope
		if resp.status >= 500 && json.Unmarshal(resp.body, &env) == nil && env.Error && env.Message != "" {
			return &domain.ApplicationError{Op: op, Message: env.Message}
		}
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &domain.NetworkError{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		if resp.status < 200 || resp.status >= 300 {
			return &domain.NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.status)}
		}
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Error || resp.status < 200 || resp.status >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.status)
		}
		return &domain.ApplicationError{Op: op, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return &domain.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// send performs one HTTP round trip. Server side failures (5xx) are returned
// as errors so they count against the breaker, together with the response so
// the caller can still read its envelope.
func (c *Client) send(ctx context.Context, method, path, token string, payload []byte) (rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return rawResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return rawResponse{}, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return rawResponse{}, fmt.Errorf("read body: %w", err)
	}
	raw := rawResponse{status: res.StatusCode, body: data}
	if res.StatusCode >= 500 {
		return raw, fmt.Errorf("server returned %d", res.StatusCode)
	}

	return raw, nil
}
