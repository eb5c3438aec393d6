// Package page models a server-rendered HTML page as a mutable element tree
// with a bubbling event dispatcher, so page controllers run without a browser.
//
// A Document is not safe for concurrent use; it is driven from one goroutine,
// the way a browser drives its page.
package page

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoRoot is returned when parsed markup has no <html> element.
var ErrNoRoot = errors.New("page: document has no root element")

// Event is delivered to listeners during Dispatch.
type Event struct {
	Type   string
	Target *html.Node
	// Current is the node whose listener is running; nil for document listeners.
	Current *html.Node
}

// Listener handles a dispatched event.
type Listener func(ctx context.Context, ev Event)

// Document is a parsed page.
type Document struct {
	root      *html.Node
	listeners map[*html.Node]map[string][]Listener
}

// Parse reads HTML markup into a Document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{root: root, listeners: map[*html.Node]map[string][]Listener{}}
	if d.DocumentElement() == nil {
		return nil, ErrNoRoot
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	return First(d.DocumentElement(), ByTag("body"))
}

// ElementByID returns the element with the given id attribute, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	return First(d.root, ByAttr("id", id))
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// AddEventListener registers fn for events of type typ reaching n. A nil n
// registers a document-level listener, which runs after every element listener.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) {
	byType, ok := d.listeners[n]
	if !ok {
		byType = map[string][]Listener{}
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], fn)
}

// ListenerCount returns how many listeners of type typ are registered on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	return len(d.listeners[n][typ])
}

// Dispatch delivers an event to target and each of its ancestors, innermost
// first, then to document-level listeners.
func (d *Document) Dispatch(ctx context.Context, target *html.Node, typ string) {
	path := []*html.Node{}
	for n := target; n != nil; n = n.Parent {
		path = append(path, n)
	}
	for _, n := range path {
		for _, fn := range d.listeners[n][typ] {
			fn(ctx, Event{Type: typ, Target: target, Current: n})
		}
	}
	for _, fn := range d.listeners[nil][typ] {
		fn(ctx, Event{Type: typ, Target: target})
	}
}

// Render writes the document back out as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, mainly for diagnostics.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}
