// Package action defines the closed set of operator actions the dashboard can dispatch.
//
// Actions are a fixed enumeration. Free-form identifiers only exist at input
// boundaries (command-line arguments, console lines) and are converted with Parse;
// everything past that point switches exhaustively over Action.
package action

import (
	"fmt"
	"sort"
	"strings"
)

// Action identifies one operator intent.
type Action int

// Supported actions.
const (
	NewRequest Action = iota + 1
	AddCustomer
	SchedulePickup
	GenerateReport
	TrackVehicle
	ProcessPayment
	ToggleCustomerStatus
	LoadCustomerHistory
	UpdateRequestStatus
	UpdateVehicleStatus
	PayInvoice
	GenerateTypedReport
	OptimizeRoute
	GenerateInvoice
	ExportData
	AssignRequest
	ScheduleRequest
	ScheduleMaintenance
	UpdatePaymentMethod
	FilterCustomers
)

// Kind classifies how an action is carried out.
type Kind int

// Action kinds.
const (
	// KindDialog opens a placeholder dialog and never touches the network.
	KindDialog Kind = iota + 1
	// KindRequest issues exactly one backend request.
	KindRequest
	// KindSimulated waits a fixed delay and always succeeds.
	KindSimulated
	// KindLocal runs synchronously against view state.
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindDialog:
		return "dialog"
	case KindRequest:
		return "request"
	case KindSimulated:
		return "simulated"
	case KindLocal:
		return "local"
	}
	return "unknown"
}

var names = map[Action]string{
	NewRequest:           "new_request",
	AddCustomer:          "add_customer",
	SchedulePickup:       "schedule_pickup",
	GenerateReport:       "generate_report",
	TrackVehicle:         "track_vehicle",
	ProcessPayment:       "process_payment",
	ToggleCustomerStatus: "toggle_customer_status",
	LoadCustomerHistory:  "load_customer_history",
	UpdateRequestStatus:  "update_request_status",
	UpdateVehicleStatus:  "update_vehicle_status",
	PayInvoice:           "pay_invoice",
	GenerateTypedReport:  "generate_typed_report",
	OptimizeRoute:        "optimize_route",
	GenerateInvoice:      "generate_invoice",
	ExportData:           "export_data",
	AssignRequest:        "assign_request",
	ScheduleRequest:      "schedule_request",
	ScheduleMaintenance:  "schedule_maintenance",
	UpdatePaymentMethod:  "update_payment_method",
	FilterCustomers:      "filter_customers",
}

var byName = func() map[string]Action {
	m := make(map[string]Action, len(names))
	for a, n := range names {
		m[n] = a
	}
	return m
}()

// String returns the wire identifier of the action.
func (a Action) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is a member of the enumeration.
func (a Action) Valid() bool {
	_, ok := names[a]
	return ok
}

// Parse converts an identifier into an Action. Matching ignores case and
// surrounding whitespace, and accepts dashes in place of underscores.
func Parse(s string) (Action, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	a, ok := byName[key]
	return a, ok
}

// All returns every action ordered by identifier.
func All() []Action {
	out := make([]Action, 0, len(names))
	for a := range names {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return names[out[i]] < names[out[j]] })
	return out
}

// Names returns every identifier in sorted order.
func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, a := range all {
		out[i] = a.String()
	}
	return out
}

// QuickActions are the six actions offered on the dashboard's quick action bar,
// in display order.
func QuickActions() []Action {
	return []Action{NewRequest, AddCustomer, SchedulePickup, GenerateReport, TrackVehicle, ProcessPayment}
}

// Kind returns how the action is carried out.
func (a Action) Kind() Kind {
	switch a {
	case NewRequest, AddCustomer, SchedulePickup, TrackVehicle, ProcessPayment,
		AssignRequest, ScheduleRequest, ScheduleMaintenance, UpdatePaymentMethod:
		return KindDialog
	case GenerateReport, ToggleCustomerStatus, OptimizeRoute, GenerateInvoice, ExportData:
		return KindRequest
	case LoadCustomerHistory, UpdateRequestStatus, UpdateVehicleStatus, PayInvoice, GenerateTypedReport:
		return KindSimulated
	case FilterCustomers:
		return KindLocal
	}
	return 0
}

// Title is the human label for the action. For dialog actions it is also the
// dialog title.
func (a Action) Title() string {
	switch a {
	case NewRequest:
		return "New Service Request"
	case AddCustomer:
		return "Add New Customer"
	case SchedulePickup:
		return "Schedule Pickup"
	case GenerateReport:
		return "Quick Report"
	case TrackVehicle:
		return "Vehicle Tracking"
	case ProcessPayment:
		return "Process Payment"
	case ToggleCustomerStatus:
		return "Toggle Customer Status"
	case LoadCustomerHistory:
		return "Customer History"
	case UpdateRequestStatus:
		return "Update Request Status"
	case UpdateVehicleStatus:
		return "Update Vehicle Status"
	case PayInvoice:
		return "Pay Invoice"
	case GenerateTypedReport:
		return "Generate Report"
	case OptimizeRoute:
		return "Optimized Route"
	case GenerateInvoice:
		return "Invoice"
	case ExportData:
		return "Export Data"
	case AssignRequest:
		return "Assign Service Request"
	case ScheduleRequest:
		return "Schedule Service Request"
	case ScheduleMaintenance:
		return "Schedule Vehicle Maintenance"
	case UpdatePaymentMethod:
		return "Update Payment Method"
	case FilterCustomers:
		return "Filter Customers"
	}
	return a.String()
}
