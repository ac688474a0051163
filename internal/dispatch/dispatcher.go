// Package dispatch turns operator actions into request/response cycles.
//
// A Dispatcher is the application context: it is built once at startup with
// the backend client, view state, feedback center and loading indicator, and it
// is handed to every front end (dashboard, console, one-shot commands).
//
// Every cycle that issues a request, real or simulated, acquires the loading
// indicator before Dispatch returns and releases it exactly once when the cycle
// settles, whether it succeeded, failed or was cancelled.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/loading"
	"github.com/leapstack-labs/haulboard/internal/state"
)

// DefaultSimulateDelay is the artificial latency of simulated handlers.
const DefaultSimulateDelay = time.Second

// Backend is the subset of the API client the handlers use.
type Backend interface {
	UpdateCustomerStatus(ctx context.Context, customerID string, active bool) error
	QuickReport(ctx context.Context) (*backend.Report, error)
	OptimizeRoute(ctx context.Context, routeID string) (*backend.Route, error)
	GenerateInvoice(ctx context.Context, customerID string) (*backend.Invoice, error)
	Export(ctx context.Context, dataType string) ([]byte, error)
}

// Journal records settled cycles.
type Journal interface {
	RecordOutcome(ctx context.Context, e state.JournalEntry) error
}

// Config holds the collaborators of a Dispatcher.
type Config struct {
	Backend       Backend
	Board         *board.Board
	Feedback      *feedback.Center
	Loading       *loading.Indicator
	Journal       Journal
	SimulateDelay time.Duration
	ExportDir     string
	Logger        *slog.Logger
}

// Dispatcher maps actions to handlers.
type Dispatcher struct {
	backend  Backend
	board    *board.Board
	feedback *feedback.Center
	loading  *loading.Indicator
	journal  Journal
	delay    time.Duration
	export   string
	logger   *slog.Logger

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*Cycle
}

// New creates a Dispatcher. Board, Feedback and Loading are created when nil.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Board == nil {
		cfg.Board = board.New(nil)
	}
	if cfg.Feedback == nil {
		cfg.Feedback = feedback.New(feedback.Config{Logger: cfg.Logger})
	}
	if cfg.Loading == nil {
		cfg.Loading = loading.New(nil)
	}
	if cfg.SimulateDelay <= 0 {
		cfg.SimulateDelay = DefaultSimulateDelay
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	root, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		backend:  cfg.Backend,
		board:    cfg.Board,
		feedback: cfg.Feedback,
		loading:  cfg.Loading,
		journal:  cfg.Journal,
		delay:    cfg.SimulateDelay,
		export:   cfg.ExportDir,
		logger:   cfg.Logger,
		root:     root,
		cancel:   cancel,
		inflight: make(map[string]*Cycle),
	}
}

// Board returns the view state.
func (d *Dispatcher) Board() *board.Board { return d.board }

// Feedback returns the feedback center.
func (d *Dispatcher) Feedback() *feedback.Center { return d.feedback }

// Loading returns the loading indicator.
func (d *Dispatcher) Loading() *loading.Indicator { return d.loading }

// Status is the terminal state of a cycle.
type Status int

// Cycle statuses.
const (
	StatusSucceeded Status = iota + 1
	StatusFailed
	StatusCancelled
	// StatusIgnored marks a dispatch dropped because the same action on the
	// same target was already in flight, or because the action is unknown.
	StatusIgnored
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusIgnored:
		return "ignored"
	}
	return "pending"
}

// Outcome describes how a cycle settled.
type Outcome struct {
	CycleID string
	Action  action.Action
	Target  string
	Status  Status
	// Message is the feedback message posted, zero when none was.
	Message feedback.Message
	Err     error
	// Dialog is the dialog opened by the cycle, if any.
	Dialog *board.Dialog
	// ExportPath is the file written by an export.
	ExportPath string
}

// Posted reports whether the cycle emitted a feedback message.
func (o Outcome) Posted() bool { return o.Message.ID != "" }

// Cycle is the handle of one dispatch.
type Cycle struct {
	ID     string
	Action action.Action
	Target string

	done    chan struct{}
	outcome Outcome
}

func newCycle(a action.Action, target string) *Cycle {
	return &Cycle{ID: uuid.NewString(), Action: a, Target: target, done: make(chan struct{})}
}

func (c *Cycle) settle(o Outcome) {
	o.CycleID, o.Action, o.Target = c.ID, c.Action, c.Target
	c.outcome = o
	close(c.done)
}

// Done is closed when the cycle settles.
func (c *Cycle) Done() <-chan struct{} { return c.done }

// Outcome returns the settled outcome. It blocks until the cycle settles.
func (c *Cycle) Outcome() Outcome {
	<-c.done
	return c.outcome
}

// Wait blocks until the cycle settles or ctx ends.
func (c *Cycle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// DispatchName parses an identifier at an input boundary and dispatches it.
// Unknown identifiers are logged and dispatch nothing.
func (d *Dispatcher) DispatchName(ctx context.Context, name string, p action.Params) (*Cycle, bool) {
	a, ok := action.Parse(name)
	if !ok {
		d.logger.Info("unknown action", slog.String("action", name))
		return nil, false
	}
	return d.Dispatch(ctx, a, p), true
}

// Dispatch runs the handler for a. Dialog and local actions settle before
// Dispatch returns; request and simulated actions hold the loading indicator
// from before Dispatch returns until the cycle settles. Cancelling ctx, or
// closing the Dispatcher, cancels an outstanding cycle without feedback.
func (d *Dispatcher) Dispatch(ctx context.Context, a action.Action, p action.Params) *Cycle {
	target := p.Target(a)
	c := newCycle(a, target)

	if !a.Valid() {
		d.logger.Info("unknown action", slog.Int("action", int(a)))
		c.settle(Outcome{Status: StatusIgnored})
		return c
	}

	if err := p.Validate(a); err != nil {
		msg := d.feedback.Warning(err.Error())
		c.settle(Outcome{Status: StatusFailed, Err: err, Message: msg})
		return c
	}

	switch a.Kind() {
	case action.KindDialog:
		dl := d.board.OpenPlaceholder(a.Title())
		c.settle(Outcome{Status: StatusSucceeded, Dialog: &dl})
		return c
	case action.KindLocal:
		visible := d.board.Filter(p.Search)
		d.logger.Debug("customers filtered", slog.String("term", p.Search), slog.Int("visible", visible))
		c.settle(Outcome{Status: StatusSucceeded})
		return c
	case action.KindRequest, action.KindSimulated:
	}

	key := a.String() + "|" + target
	d.mu.Lock()
	if _, busy := d.inflight[key]; busy {
		d.mu.Unlock()
		d.logger.Debug("action already in flight", slog.String("action", a.String()), slog.String("target", target))
		c.settle(Outcome{Status: StatusIgnored})
		return c
	}
	d.inflight[key] = c
	d.mu.Unlock()

	h := handlerFor(a)
	hold := d.loading.Acquire(h.loadingText(p))

	cctx, cancel := context.WithCancel(d.root)
	stop := context.AfterFunc(ctx, cancel)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer stop()

		started := time.Now()
		res := h.run(cctx, d, p)

		// the indicator is released on every path before any feedback is shown
		hold.Release()

		o := d.finish(cctx, a, res)

		d.mu.Lock()
		delete(d.inflight, key)
		d.mu.Unlock()

		d.record(c, a, target, o, started)
		c.settle(o)
	}()

	return c
}

// finish turns a handler result into feedback and view changes.
func (d *Dispatcher) finish(ctx context.Context, a action.Action, res result) Outcome {
	if res.err != nil && (errors.Is(res.err, context.Canceled) || ctx.Err() != nil) {
		d.logger.Debug("cycle cancelled", slog.String("action", a.String()))
		return Outcome{Status: StatusCancelled, Err: res.err}
	}

	if res.err != nil {
		text := failureText(a, res.err)
		d.logger.Warn("action failed", slog.String("action", a.String()), slog.Any("error", res.err))
		return Outcome{Status: StatusFailed, Err: res.err, Message: d.feedback.Error(text)}
	}

	o := Outcome{Status: StatusSucceeded, ExportPath: res.exportPath}
	if res.success != "" {
		o.Message = d.feedback.Success(res.success)
	}
	if res.apply != nil {
		o.Dialog = res.apply(d.board)
	}
	d.logger.Debug("action succeeded", slog.String("action", a.String()), slog.String("message", res.success))
	return o
}

// failureText picks the message for a failed cycle. Exports always use their
// own message. Otherwise transport failures get the generic network message,
// and application failures the backend's reason when it gave one.
func failureText(a action.Action, err error) string {
	if a == action.ExportData {
		return handlerFor(a).failure
	}
	if backend.IsTransport(err) {
		return NetworkErrorText
	}
	if msg := backend.Message(err); msg != "" {
		return msg
	}
	return handlerFor(a).failure
}

func (d *Dispatcher) record(c *Cycle, a action.Action, target string, o Outcome, started time.Time) {
	if d.journal == nil {
		return
	}
	outcome := state.OutcomeSuccess
	switch o.Status {
	case StatusFailed:
		outcome = state.OutcomeFailure
	case StatusCancelled:
		outcome = state.OutcomeCancelled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := d.journal.RecordOutcome(ctx, state.JournalEntry{
		ID:         c.ID,
		Action:     a.String(),
		Target:     target,
		Outcome:    outcome,
		Message:    o.Message.Text,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	if err != nil {
		d.logger.Warn("failed to journal action", slog.String("action", a.String()), slog.Any("error", err))
	}
}

// InFlight returns the number of outstanding request cycles.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Close cancels outstanding cycles and waits for them to settle.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
