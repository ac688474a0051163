package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/haulboard/internal/capability"
	"github.com/leapstack-labs/haulboard/internal/cli/config"
	"github.com/leapstack-labs/haulboard/internal/cli/output"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Strict bool
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend, terminal capabilities and host",
		Long: `Run environment checks and print a report:
- Backend health (GET /health)
- Terminal capabilities (desktop notifications, geolocation, live socket)
- Host information

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run checks
  haulboard doctor

  # Fail when the backend is unhealthy
  haulboard doctor --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error when the backend is unhealthy")
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Backend      BackendCheck        `json:"backend"`
	Capabilities []capability.Result `json:"capabilities"`
	Host         HostInfo            `json:"host"`
	ConfigFile   string              `json:"config_file,omitempty"`
	StatePath    string              `json:"state_path"`
}

// BackendCheck is the result of the backend health check.
type BackendCheck struct {
	URL      string `json:"url"`
	Healthy  bool   `json:"healthy"`
	Status   string `json:"status,omitempty"`
	Database string `json:"database,omitempty"`
	Version  string `json:"version,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HostInfo describes the machine the dashboard runs on.
type HostInfo struct {
	Hostname string `json:"hostname,omitempty"`
	OS       string `json:"os,omitempty"`
	Platform string `json:"platform,omitempty"`
	Kernel   string `json:"kernel,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cctx := NewCommandContext(cmd)
	cfg := cctx.Cfg
	r := cctx.Renderer

	out := &DoctorOutput{
		Backend:    BackendCheck{URL: cfg.Backend.BaseURL},
		ConfigFile: config.GetConfigFileUsed(),
		StatePath:  cfg.StatePath,
	}

	g, gctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		out.Backend = checkBackend(gctx, cctx)
		return nil
	})
	g.Go(func() error {
		out.Capabilities = capability.NewProber(cfg.Live.URL, cctx.Logger).Probe(gctx).Results
		return nil
	})
	g.Go(func() error {
		out.Host = hostInfo(gctx)
		return nil
	})
	_ = g.Wait()

	var err error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}

	if opts.Strict && !out.Backend.Healthy {
		return fmt.Errorf("backend at %s is not healthy", out.Backend.URL)
	}
	return nil
}

func checkBackend(ctx context.Context, cctx *CommandContext) BackendCheck {
	check := BackendCheck{URL: cctx.Cfg.Backend.BaseURL}

	client, err := NewClient(cctx.Cfg, cctx.Logger)
	if err != nil {
		check.Error = err.Error()
		return check
	}

	started := time.Now()
	h, err := client.Health(ctx)
	check.Latency = time.Since(started).Round(time.Millisecond).String()
	if h != nil {
		check.Status = h.Status
		check.Database = h.Database
		check.Version = h.Version
		check.Healthy = h.Healthy()
		if h.Error != "" {
			check.Error = h.Error
		}
	}
	if err != nil {
		check.Error = err.Error()
	}
	return check
}

func hostInfo(ctx context.Context) HostInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{Error: err.Error()}
	}
	return HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
		Kernel:   strings.TrimSpace(info.KernelVersion + " " + info.KernelArch),
		Uptime:   (time.Duration(info.Uptime) * time.Second).String(),
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println("")
	r.Println(styles.Header1.Render("haulboard Doctor"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Backend"))
	icon := styles.StatusSuccess.String()
	if !out.Backend.Healthy {
		icon = styles.StatusFailed.String()
	}
	r.Printf("   %s %s", icon, out.Backend.URL)
	if out.Backend.Status != "" {
		r.Printf(" (%s, database %s, %s)", out.Backend.Status, out.Backend.Database, out.Backend.Latency)
	}
	r.Println("")
	if out.Backend.Version != "" {
		r.Println(styles.Muted.Render("       version " + out.Backend.Version))
	}
	if out.Backend.Error != "" {
		r.Println(styles.Error.Render("       " + out.Backend.Error))
	}
	r.Println("")

	r.Println(styles.Header2.Render("Capabilities"))
	for _, c := range out.Capabilities {
		icon := styles.StatusSuccess.String()
		if !c.Available {
			icon = styles.Warning.Render("!")
		}
		r.Printf("   %s %s", icon, titleCaser.String(string(c.Name)))
		if c.Detail != "" {
			r.Printf("%s", styles.Muted.Render(" - "+c.Detail))
		}
		r.Println("")
	}
	r.Println("")

	r.Println(styles.Header2.Render("Host"))
	if out.Host.Error != "" {
		r.Println(styles.Error.Render("   " + out.Host.Error))
	} else {
		r.Printf("   %s | %s | %s\n", out.Host.Hostname, out.Host.Platform, out.Host.Kernel)
		r.Println(styles.Muted.Render("   up " + out.Host.Uptime))
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	if out.ConfigFile != "" {
		r.Println(styles.Muted.Render("   config: " + out.ConfigFile))
	}
	r.Println(styles.Muted.Render("   state:  " + out.StatePath))
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	titleCaser := cases.Title(language.English)

	r.Println(output.FormatHeader("haulboard Doctor", 1))
	r.Println("")

	r.Println(output.FormatHeader("Backend", 2))
	r.Println("")
	r.Println(output.FormatKeyValue("URL", out.Backend.URL))
	r.Println(output.FormatKeyValue("Healthy", fmt.Sprintf("%t", out.Backend.Healthy)))
	if out.Backend.Status != "" {
		r.Println(output.FormatKeyValue("Status", out.Backend.Status))
		r.Println(output.FormatKeyValue("Database", out.Backend.Database))
		r.Println(output.FormatKeyValue("Version", out.Backend.Version))
		r.Println(output.FormatKeyValue("Latency", out.Backend.Latency))
	}
	if out.Backend.Error != "" {
		r.Println(output.FormatKeyValue("Error", out.Backend.Error))
	}
	r.Println("")

	r.Println(output.FormatHeader("Capabilities", 2))
	r.Println("")
	rows := make([][]string, 0, len(out.Capabilities))
	for _, c := range out.Capabilities {
		avail := "no"
		if c.Available {
			avail = "yes"
		}
		rows = append(rows, []string{titleCaser.String(string(c.Name)), avail, c.Detail})
	}
	r.Table([]string{"Capability", "Available", "Detail"}, rows)
	r.Println("")

	r.Println(output.FormatHeader("Host", 2))
	r.Println("")
	if out.Host.Error != "" {
		r.Println(output.FormatKeyValue("Error", out.Host.Error))
		return
	}
	r.Println(output.FormatKeyValue("Hostname", out.Host.Hostname))
	r.Println(output.FormatKeyValue("Platform", out.Host.Platform))
	r.Println(output.FormatKeyValue("Kernel", out.Host.Kernel))
	r.Println(output.FormatKeyValue("Uptime", out.Host.Uptime))
}
