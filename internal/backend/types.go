package backend

import (
	"encoding/json"
	"strconv"
)

// Customer is one row of GET /api/customers.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt string
	// IsActive defaults to true when the backend omits it.
	IsActive bool
}

// Key returns the customer id in the string form used by action parameters.
func (c Customer) Key() string {
	return strconv.FormatInt(c.ID, 10)
}

type customerWire struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	CreatedAt *string `json:"created_at"`
	IsActive  *bool   `json:"is_active"`
}

// UnmarshalJSON applies the backend's defaults for optional fields.
func (c *Customer) UnmarshalJSON(b []byte) error {
	var w customerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = Customer{
		ID:       w.ID,
		Name:     w.Name,
		Email:    w.Email,
		Phone:    w.Phone,
		Address:  w.Address,
		IsActive: true,
	}
	if w.CreatedAt != nil {
		c.CreatedAt = *w.CreatedAt
	}
	if w.IsActive != nil {
		c.IsActive = *w.IsActive
	}
	return nil
}

// MarshalJSON writes the wire form.
func (c Customer) MarshalJSON() ([]byte, error) {
	active := c.IsActive
	var created *string
	if c.CreatedAt != "" {
		created = &c.CreatedAt
	}
	return json.Marshal(customerWire{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: created,
		IsActive:  &active,
	})
}

// Report is the payload of the quick analytics report.
type Report struct {
	TotalRevenue      float64  `json:"total_revenue"`
	TotalRequests     int      `json:"total_requests"`
	PendingRequests   int      `json:"pending_requests"`
	CompletedRequests int      `json:"completed_requests"`
	TotalCustomers    int      `json:"total_customers,omitempty"`
	MonthlyGrowth     float64  `json:"monthly_growth,omitempty"`
	TopServices       []string `json:"top_services,omitempty"`
}

// RouteStop is one stop on an optimized route.
type RouteStop struct {
	Order   int    `json:"order"`
	Address string `json:"address"`
	ETA     string `json:"eta,omitempty"`
}

// Route is the result of a route optimization.
type Route struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DistanceKM  float64     `json:"distance_km"`
	DurationMin int         `json:"duration_min"`
	Stops       []RouteStop `json:"stops"`
}

// Invoice is a generated invoice. HTML, when present, is the backend's
// rendered invoice document.
type Invoice struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	DueDate    string  `json:"due_date"`
	Status     string  `json:"status"`
	HTML       string  `json:"html,omitempty"`
}

// Health is the backend's /health document.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Error     string `json:"error,omitempty"`
}

// Healthy reports whether the backend declared itself healthy.
func (h *Health) Healthy() bool {
	return h != nil && h.Status == "healthy"
}
