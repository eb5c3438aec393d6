// Package theme drives the appearance and theme controls inside a
// theme-machine element and keeps them in sync with the preference store.
package theme

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"daily-app/internal/domain"
	"daily-app/internal/page"
	"daily-app/internal/prefs"
)

const (
	ElementTag   = "theme-machine"
	ToggleClass  = "theme-display-toggle"
	WrapperClass = "theme-display-wrapper"
)

var (
	// ErrMissingElement is returned when a theme-machine lacks its toggle or panel.
	ErrMissingElement = errors.New("theme: toggle or display wrapper not found")
	// ErrNoControl is returned by Select when no control offers the value.
	ErrNoControl = errors.New("theme: no control for value")
)

type control struct {
	name     string
	root     *html.Node
	controls []*html.Node
}

// Controller owns one theme-machine element.
type Controller struct {
	doc     *page.Document
	el      *html.Node
	toggle  *html.Node
	wrapper *html.Node
	store   prefs.Store
	logger  *log.Logger

	prefs    []control
	attached bool
	// changeErr holds the outcome of the last dispatched control change.
	changeErr error
}

// New builds a controller for el without touching the page.
func New(doc *page.Document, el *html.Node, store prefs.Store, logger *log.Logger) (*Controller, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if el == nil {
		return nil, ErrMissingElement
	}
	c := &Controller{
		doc:     doc,
		el:      el,
		toggle:  page.First(el, page.ByClass(ToggleClass)),
		wrapper: page.First(el, page.ByClass(WrapperClass)),
		store:   store,
		logger:  logger,
	}
	if c.toggle == nil || c.wrapper == nil {
		return nil, ErrMissingElement
	}
	c.prefs = []control{
		{name: domain.PrefAppearance, root: doc.DocumentElement()},
		{name: domain.PrefTheme, root: doc.Body()},
	}
	for i := range c.prefs {
		c.prefs[i].controls = page.QueryAll(el, page.ByName(c.prefs[i].name))
	}
	return c, nil
}

// Define attaches a controller to every theme-machine element on doc.
func Define(ctx context.Context, doc *page.Document, store prefs.Store, logger *log.Logger) ([]*Controller, error) {
	var out []*Controller
	for _, el := range page.QueryAll(doc.Root(), page.ByTag(ElementTag)) {
		c, err := New(doc, el, store, logger)
		if err != nil {
			return out, err
		}
		if err := c.Attach(ctx); err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Attach syncs each control group with its stored value and registers the
// page listeners. Later calls only re-sync.
func (c *Controller) Attach(ctx context.Context) error {
	for _, p := range c.prefs {
		value, err := c.storedValue(ctx, p.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", p.name, err)
		}
		for _, in := range p.controls {
			page.SetChecked(in, page.Value(in) == value)
		}
		c.mirror(p, value)
	}
	if c.attached {
		return nil
	}
	c.attached = true

	for _, p := range c.prefs {
		name := p.name
		for _, in := range p.controls {
			c.doc.AddEventListener(in, "change", func(ctx context.Context, ev page.Event) {
				err := c.HandlePreferenceChange(ctx, name, ev.Current)
				c.changeErr = err
				if err != nil {
					c.logger.WithFields(log.Fields{"preference": name, "reason": err}).Error("preference update failed")
				}
			})
		}
	}
	c.doc.AddEventListener(c.toggle, "click", func(context.Context, page.Event) {
		c.ToggleDisplay()
	})
	c.doc.AddEventListener(nil, "click", func(_ context.Context, ev page.Event) {
		if !page.IsInside(ev.Target, c.el) {
			c.Collapse()
		}
	})
	return nil
}

func (c *Controller) storedValue(ctx context.Context, name string) (string, error) {
	value, err := c.store.Get(ctx, name)
	if err != nil || value != "" || name != domain.PrefAppearance {
		return value, err
	}
	legacy, err := c.store.Get(ctx, domain.PrefLegacyTheme)
	if err != nil || legacy == "" {
		return "", err
	}
	if err := c.store.Set(ctx, domain.PrefAppearance, legacy); err != nil {
		return "", err
	}
	if err := c.store.Remove(ctx, domain.PrefLegacyTheme); err != nil {
		c.logger.WithField("reason", err).Warn("legacy theme key not removed")
	}
	c.logger.WithField("value", legacy).Debug("migrated legacy theme preference")
	return legacy, nil
}

func (c *Controller) mirror(p control, value string) {
	if p.root == nil {
		return
	}
	attr := domain.PreferenceAttr(p.name)
	if value == "" {
		page.RemoveAttr(p.root, attr)
		return
	}
	page.SetAttr(p.root, attr, value)
}

func (c *Controller) group(name string) (control, bool) {
	for _, p := range c.prefs {
		if p.name == name {
			return p, true
		}
	}
	return control{}, false
}

// HandlePreferenceChange persists the value of target for preference name
// and mirrors it onto the preference's root element. An empty value clears it.
func (c *Controller) HandlePreferenceChange(ctx context.Context, name string, target *html.Node) error {
	p, ok := c.group(name)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreference, name)
	}
	value := page.Value(target)
	if value == "" {
		if err := c.store.Remove(ctx, name); err != nil {
			return err
		}
	} else if err := c.store.Set(ctx, name, value); err != nil {
		return err
	}
	c.mirror(p, value)
	return nil
}

// Select checks the control offering value in group name, unchecks its
// siblings and dispatches change on it, as a click on the radio would. It
// returns the error of the resulting preference update.
func (c *Controller) Select(ctx context.Context, name, value string) error {
	p, ok := c.group(name)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreference, name)
	}
	var target *html.Node
	for _, in := range p.controls {
		if page.Value(in) == value {
			target = in
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s=%q", ErrNoControl, name, value)
	}
	for _, in := range p.controls {
		page.SetChecked(in, in == target)
	}
	c.changeErr = nil
	c.doc.Dispatch(ctx, target, "change")
	return c.changeErr
}

// Option describes one control of a preference group.
type Option struct {
	Value   string
	Label   string
	Checked bool
}

// Options lists the controls of group name in page order.
func (c *Controller) Options(name string) []Option {
	p, _ := c.group(name)
	out := make([]Option, 0, len(p.controls))
	for _, in := range p.controls {
		label := page.Value(in)
		if l := page.Closest(in, page.ByTag("label")); l != nil {
			label = page.Text(l)
		}
		out = append(out, Option{Value: page.Value(in), Label: label, Checked: page.Checked(in)})
	}
	return out
}

// Selected returns the value of the checked control in group name.
func (c *Controller) Selected(name string) (string, bool) {
	p, _ := c.group(name)
	for _, in := range p.controls {
		if page.Checked(in) {
			return page.Value(in), true
		}
	}
	return "", false
}

// ToggleDisplay flips the panel open or closed.
func (c *Controller) ToggleDisplay() {
	expanded := c.Expanded()
	page.SetAttr(c.toggle, "aria-expanded", fmt.Sprint(!expanded))
	page.ToggleAttr(c.wrapper, "hidden", expanded)
}

// Collapse hides the panel.
func (c *Controller) Collapse() {
	page.SetAttr(c.toggle, "aria-expanded", "false")
	page.ToggleAttr(c.wrapper, "hidden", true)
}

// Expanded reports whether the toggle is marked expanded.
func (c *Controller) Expanded() bool {
	v, _ := page.Attr(c.toggle, "aria-expanded")
	return v == "true"
}

// Toggle returns the display toggle button.
func (c *Controller) Toggle() *html.Node {
	return c.toggle
}

// Wrapper returns the collapsible panel.
func (c *Controller) Wrapper() *html.Node {
	return c.wrapper
}

// Element returns the theme-machine element.
func (c *Controller) Element() *html.Node {
	return c.el
}
