package board

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leapstack-labs/haulboard/internal/backend"
)

// ReportBody renders the quick report dialog.
func ReportBody(r *backend.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total Revenue:      $%.2f\n", r.TotalRevenue)
	fmt.Fprintf(&sb, "Total Requests:     %d\n", r.TotalRequests)
	fmt.Fprintf(&sb, "Pending Requests:   %d\n", r.PendingRequests)
	fmt.Fprintf(&sb, "Completed Requests: %d", r.CompletedRequests)
	if len(r.TopServices) > 0 {
		fmt.Fprintf(&sb, "\nTop Services:       %s", strings.Join(r.TopServices, ", "))
	}
	return sb.String()
}

// RouteBody renders an optimized route.
func RouteBody(r *backend.Route) string {
	var sb strings.Builder
	name := r.Name
	if name == "" {
		name = "Route " + r.ID
	}
	fmt.Fprintf(&sb, "%s\n", name)
	fmt.Fprintf(&sb, "Distance: %.1f km, duration: %d min\n", r.DistanceKM, r.DurationMin)
	for _, s := range r.Stops {
		line := fmt.Sprintf("%2d. %s", s.Order, s.Address)
		if s.ETA != "" {
			line += " (" + s.ETA + ")"
		}
		sb.WriteString("\n" + line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// InvoiceBody renders an invoice. When the backend supplied an HTML document it
// is converted to markdown for the terminal; otherwise a summary is built from
// the structured fields.
func InvoiceBody(inv *backend.Invoice) string {
	if strings.TrimSpace(inv.HTML) != "" {
		md, err := htmltomarkdown.ConvertString(inv.HTML)
		if err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Invoice %s\n", inv.ID)
	fmt.Fprintf(&sb, "Customer: %s\n", inv.CustomerID)
	fmt.Fprintf(&sb, "Amount:   $%.2f\n", inv.Amount)
	if inv.DueDate != "" {
		fmt.Fprintf(&sb, "Due:      %s\n", inv.DueDate)
	}
	if inv.Status != "" {
		fmt.Fprintf(&sb, "Status:   %s\n", inv.Status)
	}
	return strings.TrimRight(sb.String(), "\n")
}
