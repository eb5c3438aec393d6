package tasklist

import (
	"context"
	"fmt"
)

// Op names the user action a Result belongs to.
type Op string

const (
	OpSave     Op = "save"
	OpComplete Op = "complete"
)

// Outcome classifies how an action ended.
type Outcome int

const (
	// Ignored means validation dropped the action before any request.
	Ignored Outcome = iota
	Succeeded
	// Rejected means the server answered outside 2xx.
	Rejected
	// NetworkFailed means the request never completed.
	NetworkFailed
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Succeeded:
		return "succeeded"
	case Rejected:
		return "rejected"
	case NetworkFailed:
		return "network_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is returned by every controller action and handed to the Presenter.
type Result struct {
	Op      Op
	Outcome Outcome
	// Status is the HTTP status for Succeeded and Rejected results.
	Status int
	TaskID string
	// Err carries the transport error for NetworkFailed, or a follow-up
	// failure (reload, cancelled fade) for Succeeded.
	Err error
}

// Failed reports whether the result should be surfaced as an alert.
func (r Result) Failed() bool {
	return r.Outcome == Rejected || r.Outcome == NetworkFailed
}

// Message returns the user-facing text for the result.
func (r Result) Message() string {
	verb := "save"
	noun := "saving"
	if r.Op == OpComplete {
		verb = "complete"
		noun = "completing"
	}
	switch r.Outcome {
	case Rejected:
		return fmt.Sprintf("Could not %s task (server returned %d)", verb, r.Status)
	case NetworkFailed:
		return fmt.Sprintf("Network error while %s task", noun)
	case Succeeded:
		if r.Op == OpComplete {
			return "Task completed"
		}
		return "Task saved"
	default:
		return ""
	}
}

// Presenter receives every non-ignored Result.
type Presenter interface {
	Present(ctx context.Context, r Result)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, r Result)

func (f PresenterFunc) Present(ctx context.Context, r Result) { f(ctx, r) }
