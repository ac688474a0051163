// Package backend is the HTTP client for the waste-collection management API.
//
// Every call issues exactly one request. JSON responses use the envelope
// {"success": bool, "message": string, ...payload}; anything other than
// success:true is reported as an *APIError. Connection failures and bodies that
// are not JSON are reported as ErrTransport.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// CSRFHeader is the header carrying the anti-forgery token.
const CSRFHeader = "X-CSRFToken"

// DefaultTimeout bounds a single request at the transport level.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	// PagePath is the path of the page carrying the csrf-token meta tag.
	// Ignored when Tokens is set.
	PagePath   string
	Tokens     TokenSource
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	logger *slog.Logger
}

// New creates a Client. Without an explicit TokenSource the token is read from
// the page at PagePath.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Jar: jar, Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{base: base, http: hc, tokens: cfg.Tokens, logger: logger}
	if c.tokens == nil {
		page := cfg.PagePath
		if page == "" {
			page = "/"
		}
		c.tokens = NewPageToken(hc, c.url(page))
	}
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) url(path string) string {
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

// ListCustomers returns every customer. The endpoint answers with a bare array.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/customers", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("read customers", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apiErrorFrom(resp.StatusCode, body)
	}

	var customers []Customer
	if err := json.Unmarshal(body, &customers); err != nil {
		return nil, transportErr("decode customers", err)
	}
	return customers, nil
}

// UpdateCustomerStatus sets a customer's active flag.
func (c *Client) UpdateCustomerStatus(ctx context.Context, customerID string, active bool) error {
	path := "/api/customers/" + url.PathEscape(customerID) + "/status"
	return c.call(ctx, http.MethodPut, path, map[string]any{"is_active": active}, nil)
}

// QuickReport fetches the quick analytics report.
func (c *Client) QuickReport(ctx context.Context) (*Report, error) {
	var out struct {
		Data *Report `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/analytics/quick-report", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = &Report{}
	}
	return out.Data, nil
}

// OptimizeRoute asks the backend to optimize a route.
func (c *Client) OptimizeRoute(ctx context.Context, routeID string) (*Route, error) {
	var out struct {
		Route *Route `json:"route"`
	}
	path := "/api/routes/" + url.PathEscape(routeID) + "/optimize"
	if err := c.call(ctx, http.MethodPost, path, map[string]any{}, &out); err != nil {
		return nil, err
	}
	if out.Route == nil {
		out.Route = &Route{ID: routeID}
	}
	return out.Route, nil
}

// GenerateInvoice creates an invoice for a customer.
func (c *Client) GenerateInvoice(ctx context.Context, customerID string) (*Invoice, error) {
	var out struct {
		Invoice *Invoice `json:"invoice"`
	}
	body := map[string]any{"customer_id": customerID}
	if err := c.call(ctx, http.MethodPost, "/api/billing/generate-invoice", body, &out); err != nil {
		return nil, err
	}
	if out.Invoice == nil {
		out.Invoice = &Invoice{CustomerID: customerID}
	}
	return out.Invoice, nil
}

// Export downloads the raw export of a data category.
func (c *Client) Export(ctx context.Context, dataType string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/export/"+url.PathEscape(dataType), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("read export", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apiErrorFrom(resp.StatusCode, body)
	}
	return body, nil
}

// Health reads /health. Unhealthy backends answer 500 with a JSON body, which
// is returned alongside an *APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, transportErr("decode health", err)
	}
	if resp.StatusCode >= 400 || !h.Healthy() {
		return &h, &APIError{StatusCode: resp.StatusCode, Message: h.Error}
	}
	return &h, nil
}

// call performs one enveloped JSON request and decodes the payload into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportErr("read response", err)
	}

	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return transportErr("decode response", err)
	}
	if env.Success == nil || !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return transportErr("decode payload", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(CSRFHeader, token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return nil, transportErr(strings.ToLower(method)+" "+path, err)
	}
	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	// a rejected token is refetched by the next mutating request
	if resp.StatusCode == http.StatusForbidden && method != http.MethodGet && method != http.MethodHead {
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
			inv.Invalidate()
			c.logger.Debug("csrf token invalidated", slog.String("path", path))
		}
	}
	return resp, nil
}

func apiErrorFrom(status int, body []byte) error {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{StatusCode: status}
	}
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}
