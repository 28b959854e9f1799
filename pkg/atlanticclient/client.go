/**
 * @description
 * This package provides a client for the Atlantic H2H payment API. It creates QRIS
 * deposits and polls their status, handling query construction, the response
 * envelope, bounded timeouts and a single retry on transient failures.
 *
 * @dependencies
 * - context, encoding/json, net/http, net/url, time: Standard Go libraries.
 * - log/slog: Structured failure logging.
 */
package atlanticclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUpstreamUnavailable wraps every failure to obtain a usable answer from the processor.
var ErrUpstreamUnavailable = errors.New("upstream payment processor unavailable")

const (
	DefaultBaseURL       = "https://atlantich2h.com"
	DefaultDepositType   = "ewallet"
	DefaultDepositMethod = "qrisfast"
)

// Client is a client for the Atlantic H2H API.
type Client struct {
	BaseURL       string
	APIKey        string
	DepositType   string
	DepositMethod string
	HTTPClient    *http.Client
	// RetryDelay is the pause before the single retry of a transient failure.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// NewClient creates a new Atlantic API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		DepositType:   DefaultDepositType,
		DepositMethod: DefaultDepositMethod,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		RetryDelay: 500 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Deposit is the data section of a create or status response. Only the fields the
// gateway stores are decoded; the processor's numeric fields vary in type.
type Deposit struct {
	QRString string `json:"qr_string"`
	QRImage  string `json:"qr_image"`
	Status   string `json:"status"`
}

// envelope is the processor's common response wrapper.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
	Data    *Deposit        `json:"data"`
}

func (e envelope) rejected() bool {
	var ok bool
	if err := json.Unmarshal(e.Status, &ok); err == nil {
		return !ok
	}
	var text string
	if err := json.Unmarshal(e.Status, &text); err == nil {
		return strings.EqualFold(text, "false")
	}
	return false
}

// CreateDeposit asks the processor to issue a QRIS charge for the reference.
func (c *Client) CreateDeposit(ctx context.Context, reffID string, nominal int64) (*Deposit, error) {
	params := url.Values{}
	params.Set("apikey", c.APIKey)
	params.Set("reff_id", reffID)
	params.Set("nominal", strconv.FormatInt(nominal, 10))
	params.Set("type", valueOr(c.DepositType, DefaultDepositType))
	params.Set("metode", valueOr(c.DepositMethod, DefaultDepositMethod))

	return c.do(ctx, "create_deposit", "/deposit/create", params, reffID)
}

// DepositStatus fetches the processor's current view of a deposit.
func (c *Client) DepositStatus(ctx context.Context, reffID string) (*Deposit, error) {
	params := url.Values{}
	params.Set("apikey", c.APIKey)
	params.Set("reff_id", reffID)

	return c.do(ctx, "deposit_status", "/deposit/status", params, reffID)
}

func (c *Client) do(ctx context.Context, op, path string, params url.Values, reffID string) (*Deposit, error) {
	deposit, retryable, err := c.attempt(ctx, path, params)
	if err != nil && retryable && ctx.Err() == nil {
		c.logger().Warn("retrying upstream call", "component", "atlantic_client", "op", op, "reff_id", reffID, "err", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
		case <-time.After(c.RetryDelay):
		}
		deposit, _, err = c.attempt(ctx, path, params)
	}
	if err != nil {
		c.logger().Error("upstream call failed", "component", "atlantic_client", "op", op, "reff_id", reffID, "err", err)
		return nil, err
	}
	return deposit, nil
}

// attempt performs one request. The bool reports whether a retry may help.
func (c *Client) attempt(ctx context.Context, path string, params url.Values) (*Deposit, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: execute request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode >= 500, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}
	if env.rejected() {
		return nil, false, fmt.Errorf("%w: rejected: %s", ErrUpstreamUnavailable, env.Message)
	}
	if env.Data == nil {
		return nil, false, fmt.Errorf("%w: response has no data", ErrUpstreamUnavailable)
	}
	return env.Data, false, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
