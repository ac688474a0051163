package devserver

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/haulboard/internal/backend"
)

// Fixtures is the YAML document the dev server serves its data from.
type Fixtures struct {
	Customers []CustomerFixture       `yaml:"customers"`
	Report    ReportFixture           `yaml:"report"`
	Routes    map[string]RouteFixture `yaml:"routes"`
	// Rates maps a customer id to its monthly charge.
	Rates map[string]float64 `yaml:"rates"`
}

// CustomerFixture is one customer row.
type CustomerFixture struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Address   string `yaml:"address"`
	CreatedAt string `yaml:"created_at"`
	IsActive  *bool  `yaml:"is_active"`
}

// ReportFixture seeds the quick report.
type ReportFixture struct {
	TotalRevenue      float64  `yaml:"total_revenue"`
	TotalRequests     int      `yaml:"total_requests"`
	PendingRequests   int      `yaml:"pending_requests"`
	CompletedRequests int      `yaml:"completed_requests"`
	MonthlyGrowth     float64  `yaml:"monthly_growth"`
	TopServices       []string `yaml:"top_services"`
}

// RouteFixture is a route and its stops in optimized order.
type RouteFixture struct {
	Name        string   `yaml:"name"`
	DistanceKM  float64  `yaml:"distance_km"`
	DurationMin int      `yaml:"duration_min"`
	Stops       []string `yaml:"stops"`
}

// DefaultFixtures is served when no fixtures file is configured.
func DefaultFixtures() *Fixtures {
	yes, no := true, false
	return &Fixtures{
		Customers: []CustomerFixture{
			{ID: 1, Name: "Alice Martin", Email: "alice@greenbins.example", Phone: "555-0101", Address: "12 Elm St", CreatedAt: "2024-01-15", IsActive: &yes},
			{ID: 2, Name: "Bob Chen", Email: "bob@chenbakery.example", Phone: "555-0102", Address: "48 Market Ave", CreatedAt: "2024-02-03", IsActive: &yes},
			{ID: 3, Name: "Carla Diaz", Email: "carla@diaz.example", Phone: "555-0103", Address: "7 Harbor Rd", CreatedAt: "2024-03-22", IsActive: &no},
		},
		Report: ReportFixture{
			TotalRevenue:      15420.5,
			TotalRequests:     128,
			PendingRequests:   14,
			CompletedRequests: 109,
			MonthlyGrowth:     4.2,
			TopServices:       []string{"Residential pickup", "Recycling", "Bulk removal"},
		},
		Routes: map[string]RouteFixture{
			"1": {Name: "North loop", DistanceKM: 18.4, DurationMin: 52, Stops: []string{"12 Elm St", "48 Market Ave", "7 Harbor Rd"}},
		},
		Rates: map[string]float64{"1": 45, "2": 120, "3": 45},
	}
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Data is the dev server's mutable state, seeded from Fixtures.
type Data struct {
	mu        sync.RWMutex
	customers []backend.Customer
	report    ReportFixture
	routes    map[string]RouteFixture
	rates     map[string]float64
	invoices  int
	now       func() time.Time
}

// NewData seeds state from f.
func NewData(f *Fixtures) *Data {
	d := &Data{now: time.Now}
	d.Reset(f)
	return d
}

// Reset replaces all state with f.
func (d *Data) Reset(f *Fixtures) {
	customers := make([]backend.Customer, 0, len(f.Customers))
	for _, c := range f.Customers {
		active := true
		if c.IsActive != nil {
			active = *c.IsActive
		}
		customers = append(customers, backend.Customer{
			ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone,
			Address: c.Address, CreatedAt: c.CreatedAt, IsActive: active,
		})
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })

	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers = customers
	d.report = f.Report
	d.routes = f.Routes
	d.rates = f.Rates
}

// Customers returns all customers ordered by id.
func (d *Data) Customers() []backend.Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]backend.Customer(nil), d.customers...)
}

// SetActive updates a customer's status. It reports whether the customer exists.
func (d *Data) SetActive(id string, active bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.customers {
		if d.customers[i].Key() == id {
			d.customers[i].IsActive = active
			return true
		}
	}
	return false
}

func (d *Data) customer(id string) (backend.Customer, bool) {
	for _, c := range d.customers {
		if c.Key() == id {
			return c, true
		}
	}
	return backend.Customer{}, false
}

// Report computes the quick report.
func (d *Data) Report() backend.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return backend.Report{
		TotalRevenue:      d.report.TotalRevenue,
		TotalRequests:     d.report.TotalRequests,
		PendingRequests:   d.report.PendingRequests,
		CompletedRequests: d.report.CompletedRequests,
		TotalCustomers:    len(d.customers),
		MonthlyGrowth:     d.report.MonthlyGrowth,
		TopServices:       d.report.TopServices,
	}
}

// OptimizeRoute returns the route in optimized order.
func (d *Data) OptimizeRoute(id string) (backend.Route, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rf, ok := d.routes[id]
	if !ok {
		return backend.Route{}, false
	}
	start := d.now()
	stops := make([]backend.RouteStop, len(rf.Stops))
	per := 0
	if len(rf.Stops) > 0 {
		per = rf.DurationMin / len(rf.Stops)
	}
	for i, addr := range rf.Stops {
		stops[i] = backend.RouteStop{
			Order:   i + 1,
			Address: addr,
			ETA:     start.Add(time.Duration(per*(i+1)) * time.Minute).Format("15:04"),
		}
	}
	return backend.Route{ID: id, Name: rf.Name, DistanceKM: rf.DistanceKM, DurationMin: rf.DurationMin, Stops: stops}, true
}

// GenerateInvoice issues the next invoice for a customer.
func (d *Data) GenerateInvoice(customerID string) (backend.Invoice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.customer(customerID)
	if !ok {
		return backend.Invoice{}, fmt.Errorf("customer %s not found", customerID)
	}
	if !c.IsActive {
		return backend.Invoice{}, fmt.Errorf("customer %s is inactive", customerID)
	}
	d.invoices++
	amount := d.rates[customerID]
	inv := backend.Invoice{
		ID:         fmt.Sprintf("INV-%04d", d.invoices),
		CustomerID: customerID,
		Amount:     amount,
		DueDate:    d.now().AddDate(0, 0, 30).Format("2006-01-02"),
		Status:     "pending",
	}
	inv.HTML = fmt.Sprintf(`<h1>Invoice %s</h1><p><strong>%s</strong><br>%s</p><table><tr><th>Service</th><th>Amount</th></tr><tr><td>Monthly collection</td><td>$%.2f</td></tr></table><p>Due %s</p>`,
		inv.ID, c.Name, c.Address, amount, inv.DueDate)
	return inv, nil
}

// Export renders a data set as CSV. Known types are customers and routes.
func (d *Data) Export(dataType string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	switch dataType {
	case "customers":
		_ = w.Write([]string{"id", "name", "email", "phone", "address", "is_active"})
		for _, c := range d.customers {
			_ = w.Write([]string{c.Key(), c.Name, c.Email, c.Phone, c.Address, strconv.FormatBool(c.IsActive)})
		}
	case "routes":
		_ = w.Write([]string{"id", "name", "distance_km", "duration_min", "stops"})
		ids := make([]string, 0, len(d.routes))
		for id := range d.routes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			r := d.routes[id]
			_ = w.Write([]string{id, r.Name, strconv.FormatFloat(r.DistanceKM, 'f', 1, 64), strconv.Itoa(r.DurationMin), strconv.Itoa(len(r.Stops))})
		}
	default:
		return nil, fmt.Errorf("unknown export type %q", dataType)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
