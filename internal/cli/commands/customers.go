package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/cli/output"
)

// CustomersOptions holds options for the customers command.
type CustomersOptions struct {
	Search string
}

// NewCustomersCommand creates the customers command.
func NewCustomersCommand() *cobra.Command {
	opts := &CustomersOptions{}
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers",
		Long: `List customers from the backend.

The search term matches name, email, phone or address, ignoring case.`,
		Example: `  haulboard customers
  haulboard customers --search martin
  haulboard customers -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCustomers(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Filter customers by term")
	return cmd
}

// CustomerOutput is the JSON form of a customer.
type CustomerOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Active  bool   `json:"is_active"`
}

// CustomersOutput is the JSON output of the customers command.
type CustomersOutput struct {
	Customers []CustomerOutput `json:"customers"`
	Total     int              `json:"total"`
	Search    string           `json:"search,omitempty"`
}

func runCustomers(cmd *cobra.Command, opts *CustomersOptions) error {
	cctx := NewCommandContext(cmd)
	r := cctx.Renderer

	client, err := NewClient(cctx.Cfg, cctx.Logger)
	if err != nil {
		return err
	}
	list, err := client.ListCustomers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}

	b := board.New(nil)
	b.SetCustomers(list)
	b.Filter(opts.Search)
	visible := b.Visible()

	out := CustomersOutput{
		Customers: make([]CustomerOutput, 0, len(visible)),
		Total:     len(list),
		Search:    opts.Search,
	}
	for _, c := range visible {
		out.Customers = append(out.Customers, CustomerOutput{
			ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address, Active: c.Active,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header("Customers")
	if len(out.Customers) == 0 {
		r.Muted("No customers match")
		return nil
	}
	rows := make([][]string, 0, len(out.Customers))
	for _, c := range out.Customers {
		status := "Active"
		if !c.Active {
			status = "Inactive"
		}
		rows = append(rows, []string{c.ID, c.Name, c.Email, c.Phone, c.Address, status})
	}
	r.Table([]string{"ID", "Name", "Email", "Phone", "Address", "Status"}, rows)
	r.Muted(fmt.Sprintf("%d of %d customers", len(out.Customers), out.Total))
	return nil
}
