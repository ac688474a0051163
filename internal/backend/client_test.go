package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/testutil"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Tokens: StaticToken("tok-123"), Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return c, srv
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestClient_UpdateCustomerStatus(t *testing.T) {
	var gotBody map[string]any
	var gotToken, gotMethod, gotPath string

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotToken = r.Header.Get(CSRFHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))

	err := c.UpdateCustomerStatus(context.Background(), "42", false)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/customers/42/status", gotPath)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, map[string]any{"is_active": false}, gotBody)
}

func TestClient_EnvelopeFailures(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransport bool
		wantMessage   string
	}{
		{name: "success false with message", status: 200, body: `{"success": false, "message": "Customer not found"}`, wantMessage: "Customer not found"},
		{name: "success missing", status: 200, body: `{"invoice": {"id": "x"}}`},
		{name: "success not true", status: 200, body: `{"success": "yes"}`, wantTransport: true},
		{name: "server error json", status: 500, body: `{"success": false, "error": "db down"}`, wantMessage: "db down"},
		{name: "html error page", status: 502, body: `<html>Bad gateway</html>`, wantTransport: true},
		{name: "empty body", status: 200, body: ``, wantTransport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.GenerateInvoice(context.Background(), "7")
			require.Error(t, err)

			if tt.wantTransport {
				assert.True(t, IsTransport(err), "expected transport error, got %v", err)
				return
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, Message(err))
			assert.False(t, IsTransport(err))
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Tokens: StaticToken("")})
	require.NoError(t, err)

	_, err = c.OptimizeRoute(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestClient_QuickReport(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analytics/quick-report", r.URL.Path)
		assert.Empty(t, r.Header.Get(CSRFHeader), "GET requests carry no token")
		_, _ = io.WriteString(w, `{"success": true, "data": {"total_revenue": 1234.5, "total_requests": 10, "pending_requests": 3, "completed_requests": 7}}`)
	}))

	report, err := c.QuickReport(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, report.TotalRevenue, 0.001)
	assert.Equal(t, 10, report.TotalRequests)
	assert.Equal(t, 3, report.PendingRequests)
	assert.Equal(t, 7, report.CompletedRequests)
}

func TestClient_ListCustomers(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id": 1, "name": "Alice", "email": "a@x.com", "created_at": null},
			{"id": 2, "name": "Bob", "email": "b@y.com", "is_active": false}
		]`)
	}))

	customers, err := c.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "1", customers[0].Key())
	assert.True(t, customers[0].IsActive, "missing is_active defaults to active")
	assert.False(t, customers[1].IsActive)
}

func TestClient_Export(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/export/nothing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success": false, "message": "unknown data type"}`)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "id,name\n1,Alice\n")
	}))

	data, err := c.Export(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n", string(data))

	_, err = c.Export(context.Background(), "nothing")
	require.Error(t, err)
	assert.Equal(t, "unknown data type", Message(err))
}

func TestClient_PageTokenFetchedOnce(t *testing.T) {
	var pageHits atomic.Int32
	var tokens []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/dashboard":
			pageHits.Add(1)
			_, _ = io.WriteString(w, `<!doctype html><html><head><meta name="csrf-token" content="from-page"></head><body></body></html>`)
		case strings.HasPrefix(r.URL.Path, "/api/"):
			tokens = append(tokens, r.Header.Get(CSRFHeader))
			_, _ = io.WriteString(w, `{"success": true}`)
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, PagePath: "/dashboard"})
	require.NoError(t, err)

	require.NoError(t, c.UpdateCustomerStatus(context.Background(), "1", true))
	require.NoError(t, c.UpdateCustomerStatus(context.Background(), "2", true))

	assert.Equal(t, int32(1), pageHits.Load())
	assert.Equal(t, []string{"from-page", "from-page"}, tokens)
}

func TestClient_RejectedTokenRefetched(t *testing.T) {
	var current atomic.Value
	current.Store("tok1")
	var pageHits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := current.Load().(string)
		if r.URL.Path == "/" {
			pageHits.Add(1)
			_, _ = io.WriteString(w, `<html><head><meta name="csrf-token" content="`+tok+`"></head></html>`)
			return
		}
		if r.Header.Get(CSRFHeader) != tok {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"success": false, "message": "The CSRF token has expired."}`)
			return
		}
		_, _ = io.WriteString(w, `{"success": true}`)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.UpdateCustomerStatus(ctx, "1", true))

	current.Store("tok2")
	err = c.UpdateCustomerStatus(ctx, "1", false)
	require.Error(t, err)
	assert.Equal(t, "The CSRF token has expired.", Message(err))
	assert.Equal(t, int32(1), pageHits.Load(), "the rejected request is not retried")

	require.NoError(t, c.UpdateCustomerStatus(ctx, "1", false))
	assert.Equal(t, int32(2), pageHits.Load())
}

func TestClient_Health(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "healthy", "database": "connected", "timestamp": "2026-01-01T00:00:00", "version": "1.0.0"}`)
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
	assert.Equal(t, "1.0.0", h.Version)
}
