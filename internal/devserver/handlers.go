package devserver

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

const (
	sessionName = "haulboard_session"
	tokenKey    = "csrf_token"
)

// Handlers serves the dev server routes.
type Handlers struct {
	data         *Data
	sessionStore sessions.Store
	activity     *Activity
	notifier     *notifier.Notifier
	version      string
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(data *Data, sessionStore sessions.Store, activity *Activity, notify *notifier.Notifier, version string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		data:         data,
		sessionStore: sessionStore,
		activity:     activity,
		notifier:     notify,
		version:      version,
		logger:       logger,
	}
}

// HomePage renders the page and issues the session's anti-forgery token.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionStore.Get(r, sessionName)
	token, ok := session.Values[tokenKey].(string)
	if !ok || token == "" {
		token = uuid.NewString()
		session.Values[tokenKey] = token
		if err := session.Save(r, w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page(token, h.data.Customers(), h.activity.Entries()).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint for the page. It patches the customer
// table and activity list whenever either changes.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case topic := <-updates:
			var err error
			switch topic {
			case notifier.TopicBoard:
				err = sse.PatchElementTempl(CustomerTable(h.data.Customers()))
			case notifier.TopicActivity:
				err = sse.PatchElementTempl(ActivityList(h.activity.Entries()))
			case notifier.TopicFeedback, notifier.TopicLoading:
			}
			if err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// RequireCSRF rejects mutating requests whose X-CSRFToken header does not match
// the session token.
func (h *Handlers) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		session, _ := h.sessionStore.Get(r, sessionName)
		want, _ := session.Values[tokenKey].(string)
		got := r.Header.Get(backend.CSRFHeader)
		if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
			h.logger.Debug("csrf check failed", slog.String("path", r.URL.Path))
			writeFailure(w, http.StatusForbidden, "CSRF token missing or invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health reports server status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.Health{
		Status:    "healthy",
		Database:  "fixtures",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	})
}

// ListCustomers answers with a bare array.
func (h *Handlers) ListCustomers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.data.Customers())
}

// UpdateCustomerStatus sets a customer's active flag.
func (h *Handlers) UpdateCustomerStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsActive == nil {
		writeFailure(w, http.StatusBadRequest, "is_active is required")
		return
	}
	if !h.data.SetActive(id, *body.IsActive) {
		writeFailure(w, http.StatusNotFound, "Customer not found")
		return
	}

	state := "inactive"
	if *body.IsActive {
		state = "active"
	}
	h.notifier.Broadcast(notifier.TopicBoard)
	h.activity.Record("info", fmt.Sprintf("Customer %s marked %s", id, state))
	writeSuccess(w, map[string]any{"message": "Customer status updated"})
}

// QuickReport returns the analytics summary.
func (h *Handlers) QuickReport(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]any{"data": h.data.Report()})
}

// OptimizeRoute returns the route in optimized order.
func (h *Handlers) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	route, ok := h.data.OptimizeRoute(id)
	if !ok {
		writeFailure(w, http.StatusNotFound, "Route not found")
		return
	}
	h.activity.Record("success", fmt.Sprintf("Route %s optimized", id))
	writeSuccess(w, map[string]any{"route": route})
}

// GenerateInvoice issues an invoice. customer_id may be a string or a number.
func (h *Handlers) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID json.RawMessage `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.CustomerID) == 0 {
		writeFailure(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	id := strings.Trim(string(body.CustomerID), `"`)

	inv, err := h.data.GenerateInvoice(id)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	h.activity.Record("success", fmt.Sprintf("Invoice %s generated for customer %s", inv.ID, id))
	writeSuccess(w, map[string]any{"invoice": inv})
}

// Export streams a CSV download.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	dataType := chi.URLParam(r, "type")
	data, err := h.data.Export(dataType)
	if err != nil {
		writeFailure(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_export.csv"`, dataType))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, payload map[string]any) {
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
