package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingParam is returned by Validate when an action lacks a required parameter.
var ErrMissingParam = errors.New("missing parameter")

// Params carries the typed context of one dispatch.
type Params struct {
	CustomerID string
	RequestID  string
	VehicleID  string
	RouteID    string
	InvoiceID  string
	Status     string
	ReportType string
	DataType   string
	Search     string
	// Active is the requested customer status for ToggleCustomerStatus, and the
	// requested availability for UpdateVehicleStatus.
	Active bool
}

// Target returns the entity key an action operates on. Two dispatches with the
// same action and target are considered the same operation.
func (p Params) Target(a Action) string {
	switch a {
	case ToggleCustomerStatus, LoadCustomerHistory, GenerateInvoice, UpdatePaymentMethod:
		return p.CustomerID
	case UpdateRequestStatus, AssignRequest, ScheduleRequest:
		return p.RequestID
	case UpdateVehicleStatus, ScheduleMaintenance:
		return p.VehicleID
	case OptimizeRoute:
		return p.RouteID
	case PayInvoice:
		return p.InvoiceID
	case GenerateTypedReport:
		return p.ReportType
	case ExportData:
		return p.DataType
	case FilterCustomers:
		return p.Search
	case NewRequest, AddCustomer, SchedulePickup, GenerateReport, TrackVehicle, ProcessPayment:
		return ""
	}
	return ""
}

// Validate checks that p holds what action a needs.
func (p Params) Validate(a Action) error {
	need := func(name, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s requires %s: %w", a, name, ErrMissingParam)
		}
		return nil
	}

	switch a {
	case ToggleCustomerStatus, LoadCustomerHistory, GenerateInvoice, UpdatePaymentMethod:
		return need("customer", p.CustomerID)
	case UpdateRequestStatus:
		if err := need("request", p.RequestID); err != nil {
			return err
		}
		return need("status", p.Status)
	case AssignRequest, ScheduleRequest:
		return need("request", p.RequestID)
	case UpdateVehicleStatus, ScheduleMaintenance:
		return need("vehicle", p.VehicleID)
	case OptimizeRoute:
		return need("route", p.RouteID)
	case PayInvoice:
		return need("invoice", p.InvoiceID)
	case GenerateTypedReport:
		return need("type", p.ReportType)
	case ExportData:
		return need("type", p.DataType)
	case NewRequest, AddCustomer, SchedulePickup, GenerateReport, TrackVehicle, ProcessPayment, FilterCustomers:
		return nil
	}
	return fmt.Errorf("unknown action %d", int(a))
}

// ParseParams reads key=value pairs such as `customer=42 active=true`.
func ParseParams(args []string) (Params, error) {
	var p Params
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return p, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "customer":
			p.CustomerID = value
		case "request":
			p.RequestID = value
		case "vehicle":
			p.VehicleID = value
		case "route":
			p.RouteID = value
		case "invoice":
			p.InvoiceID = value
		case "status":
			p.Status = value
		case "type":
			p.ReportType = value
			p.DataType = value
		case "search":
			p.Search = value
		case "active", "available":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return p, fmt.Errorf("invalid %s value %q: %w", key, value, err)
			}
			p.Active = b
		default:
			return p, fmt.Errorf("unknown parameter %q", key)
		}
	}
	return p, nil
}
