package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/board"
)

// NetworkErrorText is shown for every transport failure.
const NetworkErrorText = "Network error occurred"

// result is what a handler hands back to the dispatcher. apply runs only on
// success, after the indicator is released and the success message posted.
type result struct {
	success    string
	err        error
	apply      func(b *board.Board) *board.Dialog
	exportPath string
}

type handler struct {
	loading string
	// loadingFor overrides loading when the text depends on parameters.
	loadingFor func(p action.Params) string
	failure    string
	run        func(ctx context.Context, d *Dispatcher, p action.Params) result
}

func (h handler) loadingText(p action.Params) string {
	if h.loadingFor != nil {
		return h.loadingFor(p)
	}
	return h.loading
}

// handlerFor returns the request or simulated handler for a. It panics for
// dialog and local actions, which never reach it.
func handlerFor(a action.Action) handler {
	switch a {
	case action.ToggleCustomerStatus:
		return handler{
			loading: "Updating customer status...",
			failure: "Failed to update customer status",
			run:     toggleCustomerStatus,
		}
	case action.GenerateReport:
		return handler{
			loading: "Generating report...",
			failure: "Failed to generate report",
			run:     generateReport,
		}
	case action.OptimizeRoute:
		return handler{
			loading: "Optimizing route...",
			failure: "Failed to optimize route",
			run:     optimizeRoute,
		}
	case action.GenerateInvoice:
		return handler{
			loading: "Generating invoice...",
			failure: "Failed to generate invoice",
			run:     generateInvoice,
		}
	case action.ExportData:
		return handler{
			loadingFor: func(p action.Params) string { return fmt.Sprintf("Exporting %s data...", p.DataType) },
			failure:    "Failed to export data",
			run:        exportData,
		}
	case action.LoadCustomerHistory:
		return simulated("Loading customer history...", func(action.Params) (string, func(*board.Board) *board.Dialog) {
			return "Customer history loaded successfully", nil
		})
	case action.UpdateRequestStatus:
		return simulated("Updating request status...", func(p action.Params) (string, func(*board.Board) *board.Dialog) {
			return "Request status updated to " + p.Status, func(b *board.Board) *board.Dialog {
				b.SetRequestStatus(p.RequestID, p.Status)
				return nil
			}
		})
	case action.UpdateVehicleStatus:
		return simulated("Updating vehicle status...", func(p action.Params) (string, func(*board.Board) *board.Dialog) {
			text := "Vehicle marked as unavailable"
			if p.Active {
				text = "Vehicle marked as available"
			}
			return text, func(b *board.Board) *board.Dialog {
				b.SetVehicleAvailable(p.VehicleID, p.Active)
				return nil
			}
		})
	case action.PayInvoice:
		return simulated("Processing payment...", func(action.Params) (string, func(*board.Board) *board.Dialog) {
			return "Payment processed successfully", nil
		})
	case action.GenerateTypedReport:
		h := simulated("", func(p action.Params) (string, func(*board.Board) *board.Dialog) {
			return p.ReportType + " report generated successfully", nil
		})
		h.loadingFor = func(p action.Params) string { return fmt.Sprintf("Generating %s report...", p.ReportType) }
		return h
	case action.NewRequest, action.AddCustomer, action.SchedulePickup, action.TrackVehicle,
		action.ProcessPayment, action.AssignRequest, action.ScheduleRequest,
		action.ScheduleMaintenance, action.UpdatePaymentMethod, action.FilterCustomers:
	}
	panic(fmt.Sprintf("dispatch: no handler for %s", a))
}

// simulated builds a handler that waits the configured delay and then always
// succeeds. It never touches the network.
func simulated(loading string, done func(p action.Params) (string, func(*board.Board) *board.Dialog)) handler {
	return handler{
		loading: loading,
		run: func(ctx context.Context, d *Dispatcher, p action.Params) result {
			t := time.NewTimer(d.delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return result{err: ctx.Err()}
			case <-t.C:
			}
			text, apply := done(p)
			return result{success: text, apply: apply}
		},
	}
}

func toggleCustomerStatus(ctx context.Context, d *Dispatcher, p action.Params) result {
	if err := d.backend.UpdateCustomerStatus(ctx, p.CustomerID, p.Active); err != nil {
		return result{err: err}
	}
	return result{
		success: "Customer status updated successfully",
		apply: func(b *board.Board) *board.Dialog {
			b.SetCustomerActive(p.CustomerID, p.Active)
			return nil
		},
	}
}

func generateReport(ctx context.Context, d *Dispatcher, _ action.Params) result {
	report, err := d.backend.QuickReport(ctx)
	if err != nil {
		return result{err: err}
	}
	return result{
		apply: func(b *board.Board) *board.Dialog {
			dl := b.OpenDialog(board.DialogReport, action.GenerateReport.Title(), board.ReportBody(report))
			return &dl
		},
	}
}

func optimizeRoute(ctx context.Context, d *Dispatcher, p action.Params) result {
	route, err := d.backend.OptimizeRoute(ctx, p.RouteID)
	if err != nil {
		return result{err: err}
	}
	if route.ID == "" {
		route.ID = p.RouteID
	}
	return result{
		success: "Route optimized successfully",
		apply: func(b *board.Board) *board.Dialog {
			dl := b.OpenDialog(board.DialogRoute, action.OptimizeRoute.Title(), board.RouteBody(route))
			return &dl
		},
	}
}

func generateInvoice(ctx context.Context, d *Dispatcher, p action.Params) result {
	inv, err := d.backend.GenerateInvoice(ctx, p.CustomerID)
	if err != nil {
		return result{err: err}
	}
	return result{
		success: "Invoice generated successfully",
		apply: func(b *board.Board) *board.Dialog {
			dl := b.OpenDialog(board.DialogInvoice, action.GenerateInvoice.Title(), board.InvoiceBody(inv))
			return &dl
		},
	}
}

func exportData(ctx context.Context, d *Dispatcher, p action.Params) result {
	data, err := d.backend.Export(ctx, p.DataType)
	if err != nil {
		return result{err: err}
	}

	path := filepath.Join(d.export, ExportFileName(p.DataType))
	if err := os.MkdirAll(d.export, 0o755); err != nil {
		return result{err: fmt.Errorf("failed to create export directory: %w", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return result{err: fmt.Errorf("failed to write export file: %w", err)}
	}
	return result{
		success:    fmt.Sprintf("%s data exported to %s", p.DataType, path),
		exportPath: path,
	}
}

// ExportFileName is the file an export of dataType is saved as.
func ExportFileName(dataType string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.TrimSpace(dataType))
	if safe == "" || safe == "." || safe == ".." {
		safe = "data"
	}
	return safe + "_export.csv"
}
