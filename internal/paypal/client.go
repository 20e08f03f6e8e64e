package paypal

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

	"github.com/TemirB/merch-checkout/internal/config"
	"github.com/TemirB/merch-checkout/internal/domain"
	"github.com/TemirB/merch-checkout/internal/observability"
	"go.uber.org/zap"
)

const (
	opToken   = "token"
	opCreate  = "create_order"
	opCapture = "capture_order"

	// maxBody caps how much of a processor response is read into memory.
	maxBody = 4 << 20
)

// Client talks to the PayPal REST API. It holds no per-buyer state: every
// call is independent and tokens are never reused.
type Client struct {
	baseURL  string
	clientID string
	secret   string

	http    *http.Client
	logger  *zap.Logger
	metrics observability.Metrics
}

func New(cfg config.PayPal, logger *zap.Logger, metrics observability.Metrics) *Client {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		metrics:  metrics,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token exchanges the configured client credentials for a bearer token.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.secret == "" {
		return "", fmt.Errorf("%w: PAYPAL_CLIENT_ID and PAYPAL_SECRET must be set", domain.ErrConfiguration)
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, opToken)
	if err != nil {
		return "", err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", &domain.UpstreamError{Op: opToken, StatusCode: http.StatusOK, Body: body}
	}
	return tr.AccessToken, nil
}

// CreateOrder posts a new order and returns PayPal's representation as-is.
func (c *Client) CreateOrder(ctx context.Context, token string, order OrderRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.authorize(req, token)

	body, err := c.do(req, opCreate)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// CaptureOrder captures a previously approved order.
func (c *Client) CaptureOrder(ctx context.Context, token, orderID string) (json.RawMessage, error) {
	u := c.baseURL + "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req, token)

	body, err := c.do(req, opCapture)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) authorize(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// do sends req once and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("paypal request failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return nil, fmt.Errorf("paypal %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	durMs := float64(time.Since(start).Microseconds()) / 1000.0
	c.metrics.ObserveProcessor(op, resp.StatusCode, durMs)
	if err != nil {
		return nil, fmt.Errorf("paypal %s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("paypal rejected request",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("debug_id", resp.Header.Get("Paypal-Debug-Id")),
			zap.Float64("dur_ms", durMs),
		)
		return nil, &domain.UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}

	c.logger.Debug("paypal request ok",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Float64("dur_ms", durMs),
	)
	return body, nil
}
