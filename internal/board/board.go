// Package board holds the dashboard's view state: customer rows, service
// requests, vehicles and open dialogs.
package board

import (
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// CustomerRow is one rendered customer entry.
type CustomerRow struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address string
	Active  bool
	Visible bool
}

// ServiceRequest is a pickup or service request row.
type ServiceRequest struct {
	ID       string
	Customer string
	Status   string
}

// Vehicle is a fleet row.
type Vehicle struct {
	ID        string
	Name      string
	Available bool
}

// Board is safe for concurrent use.
type Board struct {
	mu        sync.RWMutex
	customers []CustomerRow
	filter    string
	requests  map[string]*ServiceRequest
	vehicles  map[string]*Vehicle
	dialogs   *dialogs

	notify *notifier.Notifier
}

// New creates an empty board. notify may be nil.
func New(notify *notifier.Notifier) *Board {
	return &Board{
		requests: make(map[string]*ServiceRequest),
		vehicles: make(map[string]*Vehicle),
		dialogs:  newDialogs(),
		notify:   notify,
	}
}

func (b *Board) changed() {
	b.notify.Broadcast(notifier.TopicBoard)
}

// SetCustomers replaces the customer rows, keeping the current filter applied.
func (b *Board) SetCustomers(list []backend.Customer) {
	rows := make([]CustomerRow, len(list))
	for i, c := range list {
		rows[i] = CustomerRow{
			ID:      c.Key(),
			Name:    c.Name,
			Email:   c.Email,
			Phone:   c.Phone,
			Address: c.Address,
			Active:  c.IsActive,
		}
	}

	b.mu.Lock()
	b.customers = rows
	applyFilter(b.customers, b.filter)
	b.mu.Unlock()
	b.changed()
}

// Filter shows only the customers whose name or email contains term, ignoring
// case. An empty term shows every customer. It returns the visible count.
func (b *Board) Filter(term string) int {
	b.mu.Lock()
	b.filter = term
	n := applyFilter(b.customers, term)
	b.mu.Unlock()
	b.changed()
	return n
}

func applyFilter(rows []CustomerRow, term string) int {
	needle := strings.ToLower(term)
	n := 0
	for i := range rows {
		rows[i].Visible = MatchCustomer(rows[i], needle)
		if rows[i].Visible {
			n++
		}
	}
	return n
}

// MatchCustomer reports whether a lower-cased needle occurs in the row's name
// or email.
func MatchCustomer(row CustomerRow, needle string) bool {
	return strings.Contains(strings.ToLower(row.Name), needle) ||
		strings.Contains(strings.ToLower(row.Email), needle)
}

// FilterTerm returns the active search term.
func (b *Board) FilterTerm() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// Customers returns every row in backend order.
func (b *Board) Customers() []CustomerRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]CustomerRow, len(b.customers))
	copy(out, b.customers)
	return out
}

// Visible returns the rows passing the filter.
func (b *Board) Visible() []CustomerRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []CustomerRow
	for _, c := range b.customers {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Customer looks up a row by id.
func (b *Board) Customer(id string) (CustomerRow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.customers {
		if c.ID == id {
			return c, true
		}
	}
	return CustomerRow{}, false
}

// SetCustomerActive updates the status of one row. It reports whether the row
// exists.
func (b *Board) SetCustomerActive(id string, active bool) bool {
	b.mu.Lock()
	found := false
	for i := range b.customers {
		if b.customers[i].ID == id {
			b.customers[i].Active = active
			found = true
			break
		}
	}
	b.mu.Unlock()
	if found {
		b.changed()
	}
	return found
}

// SetRequestStatus records a request's status, creating the row if needed.
func (b *Board) SetRequestStatus(id, status string) {
	b.mu.Lock()
	r, ok := b.requests[id]
	if !ok {
		r = &ServiceRequest{ID: id}
		b.requests[id] = r
	}
	r.Status = status
	b.mu.Unlock()
	b.changed()
}

// Requests returns the known service requests ordered by id.
func (b *Board) Requests() []ServiceRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ServiceRequest, 0, len(b.requests))
	for _, r := range b.requests {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetVehicleAvailable records a vehicle's availability, creating the row if needed.
func (b *Board) SetVehicleAvailable(id string, available bool) {
	b.mu.Lock()
	v, ok := b.vehicles[id]
	if !ok {
		v = &Vehicle{ID: id, Name: "Vehicle " + id}
		b.vehicles[id] = v
	}
	v.Available = available
	b.mu.Unlock()
	b.changed()
}

// Vehicles returns the known vehicles ordered by id.
func (b *Board) Vehicles() []Vehicle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Vehicle, 0, len(b.vehicles))
	for _, v := range b.vehicles {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
