package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"daily-app/internal/tasklist"
)

var (
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d16d7a")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#d16d7a")).
			Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d"))
	checkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f9fb0")).Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// alertPresenter prints failed results as a boxed alert and remembers the
// last result so the command can report it and exit non-zero on failure.
type alertPresenter struct {
	w    io.Writer
	last *tasklist.Result
}

func newAlertPresenter(w io.Writer) *alertPresenter {
	return &alertPresenter{w: w}
}

func (a *alertPresenter) Present(_ context.Context, r tasklist.Result) {
	res := r
	a.last = &res
	if r.Failed() {
		fmt.Fprintln(a.w, alertStyle.Render(r.Message()))
	}
}

// Last returns the most recent result, if any action reached the server.
func (a *alertPresenter) Last() (tasklist.Result, bool) {
	if a.last == nil {
		return tasklist.Result{}, false
	}
	return *a.last, true
}

// Err returns the last result as an error when it failed.
func (a *alertPresenter) Err() error {
	if a.last == nil || !a.last.Failed() {
		return nil
	}
	return errors.New(a.last.Message())
}
