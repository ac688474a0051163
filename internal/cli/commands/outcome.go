package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/haulboard/internal/cli/output"
	"github.com/leapstack-labs/haulboard/internal/dispatch"
	"github.com/leapstack-labs/haulboard/internal/feedback"
)

// OutcomeOutput is the JSON form of a settled action.
type OutcomeOutput struct {
	CycleID    string        `json:"cycle_id"`
	Action     string        `json:"action"`
	Target     string        `json:"target,omitempty"`
	Status     string        `json:"status"`
	Severity   string        `json:"severity,omitempty"`
	Message    string        `json:"message,omitempty"`
	Dialog     *DialogOutput `json:"dialog,omitempty"`
	ExportPath string        `json:"export_path,omitempty"`
}

// DialogOutput is the JSON form of a dialog opened by an action.
type DialogOutput struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

func newOutcomeOutput(o dispatch.Outcome) OutcomeOutput {
	out := OutcomeOutput{
		CycleID:    o.CycleID,
		Action:     o.Action.String(),
		Target:     o.Target,
		Status:     o.Status.String(),
		ExportPath: o.ExportPath,
	}
	if o.Posted() {
		out.Severity = o.Message.Severity.String()
		out.Message = o.Message.Text
	}
	if o.Dialog != nil {
		out.Dialog = &DialogOutput{Title: o.Dialog.Title, Body: o.Dialog.Body}
	}
	return out
}

// errActionFailed is wrapped by the error returned for a failed action.
var errActionFailed = errors.New("action failed")

// renderOutcome prints a settled action and returns an error when it failed.
func renderOutcome(r *output.Renderer, o dispatch.Outcome) error {
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(newOutcomeOutput(o)); err != nil {
			return err
		}
		return outcomeErr(o)
	}

	if o.Posted() {
		switch o.Message.Severity {
		case feedback.Success:
			r.Success(o.Message.Text)
		case feedback.Warning:
			r.Warning(o.Message.Text)
		case feedback.Error:
			r.Error(o.Message.Text)
		default:
			r.Println(o.Message.Severity.Icon() + " " + o.Message.Text)
		}
	}

	if o.Dialog != nil {
		if r.EffectiveMode() == output.ModeText {
			r.Println(r.Styles().Header2.Render(o.Dialog.Title))
		} else {
			r.Println(output.FormatHeader(o.Dialog.Title, 2))
			r.Println("")
		}
		if o.Dialog.Body != "" {
			r.Println(o.Dialog.Body)
		}
	}

	if o.Status == dispatch.StatusCancelled {
		r.Muted("cancelled")
	}
	return outcomeErr(o)
}

func outcomeErr(o dispatch.Outcome) error {
	if o.Status != dispatch.StatusFailed {
		return nil
	}
	reason := o.Message.Text
	if reason == "" && o.Err != nil {
		reason = o.Err.Error()
	}
	return fmt.Errorf("%w: %s: %s", errActionFailed, o.Action, reason)
}
