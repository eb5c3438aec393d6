// Package tasklist drives the daily task form and list on a loaded page.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"daily-app/internal/client"
	"daily-app/internal/page"
)

// Page markup contract.
const (
	DefaultFormID  = "task-form"
	DefaultInputID = "task-input"
	DefaultListID  = "task-list"

	ItemClass     = "task-item"
	CheckboxClass = "task-checkbox"
	TaskIDAttr    = "data-task-id"

	SavePath     = "/daily/save"
	CompletePath = "/daily/complete/"

	DefaultFade = 300 * time.Millisecond
)

// ErrMissingElement is returned when the page lacks the form, input or list.
var ErrMissingElement = errors.New("tasklist: required elements not found")

// Poster issues the two write requests.
type Poster interface {
	PostJSON(ctx context.Context, path string, body any) (*http.Response, error)
	Post(ctx context.Context, path string) (*http.Response, error)
}

// Reloader replaces the page with a fresh server render.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Options selects the page elements and fade interval.
type Options struct {
	FormID  string
	InputID string
	ListID  string
	Fade    time.Duration
}

// DefaultOptions returns the ids rendered by the task service.
func DefaultOptions() Options {
	return Options{FormID: DefaultFormID, InputID: DefaultInputID, ListID: DefaultListID, Fade: DefaultFade}
}

// Controller binds to one task form and list.
type Controller struct {
	doc       *page.Document
	form      *html.Node
	input     *html.Node
	list      *html.Node
	poster    Poster
	reloader  Reloader
	presenter Presenter
	logger    *log.Logger
	fade      time.Duration
	after     func(time.Duration) <-chan time.Time

	bound  bool
	saving atomic.Bool
}

// New looks up the form, input and list on doc.
func New(doc *page.Document, poster Poster, reloader Reloader, presenter Presenter, logger *log.Logger, opts Options) (*Controller, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if opts.Fade < 0 {
		opts.Fade = 0
	}
	c := &Controller{
		doc:       doc,
		form:      doc.ElementByID(opts.FormID),
		input:     doc.ElementByID(opts.InputID),
		list:      doc.ElementByID(opts.ListID),
		poster:    poster,
		reloader:  reloader,
		presenter: presenter,
		logger:    logger,
		fade:      opts.Fade,
		after:     time.After,
	}
	if c.form == nil || c.input == nil || c.list == nil {
		return nil, fmt.Errorf("%w (form=%q input=%q list=%q)", ErrMissingElement, opts.FormID, opts.InputID, opts.ListID)
	}
	return c, nil
}

// Bind registers the submit listener on the form and the delegated change
// listener on the list. Repeated calls are no-ops.
func (c *Controller) Bind() {
	if c.bound {
		return
	}
	c.bound = true
	c.doc.AddEventListener(c.form, "submit", func(ctx context.Context, ev page.Event) {
		c.SubmitNewTask(ctx, page.Value(c.input))
	})
	c.doc.AddEventListener(c.list, "change", func(ctx context.Context, ev page.Event) {
		c.HandleChange(ctx, ev.Target)
	})
}

// Input returns the bound text input.
func (c *Controller) Input() *html.Node {
	return c.input
}

// Rows returns the task rows currently in the list.
func (c *Controller) Rows() []*html.Node {
	return page.QueryAll(c.list, page.ByClass(ItemClass))
}

// SubmitNewTask creates a task from title. Blank titles and submits made
// while a save is in flight are ignored.
func (c *Controller) SubmitNewTask(ctx context.Context, title string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return Result{Op: OpSave, Outcome: Ignored}
	}
	if !c.saving.CompareAndSwap(false, true) {
		c.logger.Debug("save already in flight; ignoring submit")
		return Result{Op: OpSave, Outcome: Ignored}
	}
	defer c.saving.Store(false)

	resp, err := c.poster.PostJSON(ctx, SavePath, saveRequest{Title: title})
	if err != nil {
		c.logger.WithError(err).Error("Network error")
		return c.present(ctx, Result{Op: OpSave, Outcome: NetworkFailed, Err: err})
	}
	client.Drain(resp)

	if !ok(resp.StatusCode) {
		c.logger.WithField("status", resp.StatusCode).Error("Save failed")
		return c.present(ctx, Result{Op: OpSave, Outcome: Rejected, Status: resp.StatusCode})
	}

	page.SetValue(c.input, "")
	res := Result{Op: OpSave, Outcome: Succeeded, Status: resp.StatusCode}
	if c.reloader != nil {
		if err := c.reloader.Reload(ctx); err != nil {
			c.logger.WithError(err).Warn("reload after save failed")
			res.Err = err
		}
	}
	return c.present(ctx, res)
}

// HandleChange completes the task owning target when target is a task
// checkbox inside a row carrying a task id; anything else is ignored.
func (c *Controller) HandleChange(ctx context.Context, target *html.Node) Result {
	if target == nil || !page.HasClass(target, CheckboxClass) {
		return Result{Op: OpComplete, Outcome: Ignored}
	}
	row := page.Closest(target, page.ByClass(ItemClass))
	if row == nil {
		return Result{Op: OpComplete, Outcome: Ignored}
	}
	id, _ := page.Attr(row, TaskIDAttr)
	if id == "" {
		return Result{Op: OpComplete, Outcome: Ignored}
	}
	return c.complete(ctx, row, target, id)
}

// CompleteTask completes the row whose task id is taskID. Unknown ids are ignored.
func (c *Controller) CompleteTask(ctx context.Context, taskID string) Result {
	if taskID == "" {
		return Result{Op: OpComplete, Outcome: Ignored}
	}
	row := page.First(c.list, page.And(page.ByClass(ItemClass), page.ByAttr(TaskIDAttr, taskID)))
	if row == nil {
		return Result{Op: OpComplete, Outcome: Ignored, TaskID: taskID}
	}
	checkbox := page.First(row, page.ByClass(CheckboxClass))
	if checkbox == nil {
		return Result{Op: OpComplete, Outcome: Ignored, TaskID: taskID}
	}
	return c.complete(ctx, row, checkbox, taskID)
}

func (c *Controller) complete(ctx context.Context, row, checkbox *html.Node, id string) Result {
	resp, err := c.poster.Post(ctx, CompletePath+url.PathEscape(id))
	if err != nil {
		c.logger.WithError(err).WithField("task", id).Error("Network error")
		page.SetChecked(checkbox, false)
		return c.present(ctx, Result{Op: OpComplete, Outcome: NetworkFailed, TaskID: id, Err: err})
	}
	client.Drain(resp)

	if !ok(resp.StatusCode) {
		c.logger.WithFields(log.Fields{"status": resp.StatusCode, "task": id}).Error("Failed to complete task")
		page.SetChecked(checkbox, false)
		return c.present(ctx, Result{Op: OpComplete, Outcome: Rejected, Status: resp.StatusCode, TaskID: id})
	}

	res := Result{Op: OpComplete, Outcome: Succeeded, Status: resp.StatusCode, TaskID: id}
	page.SetAttr(row, "style", fmt.Sprintf("transition: opacity %gs; opacity: 0", c.fade.Seconds()))
	if err := c.wait(ctx); err != nil {
		res.Err = err
		return c.present(ctx, res)
	}
	page.Remove(row)
	return c.present(ctx, res)
}

func (c *Controller) wait(ctx context.Context) error {
	if c.fade <= 0 {
		return ctx.Err()
	}
	select {
	case <-c.after(c.fade):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) present(ctx context.Context, r Result) Result {
	if c.presenter != nil {
		c.presenter.Present(ctx, r)
	}
	return r
}

type saveRequest struct {
	Title string `json:"title"`
}

func ok(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
