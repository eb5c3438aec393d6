package page

import (
	"context"
	"strings"
	"testing"
)

const fixture = `<!DOCTYPE html>
<html lang="en">
<body class="app">
  <ul id="task-list">
    <li class="task-item" data-task-id="42"><input type="checkbox" class="task-checkbox"> <span>Buy milk</span></li>
    <li class="task-item"><input type="checkbox" class="task-checkbox"> <span>No id</span></li>
  </ul>
  <theme-machine><button class="theme-display-toggle" aria-expanded="false">Theme</button></theme-machine>
</body>
</html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(fixture)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestQueriesAndAttributes(t *testing.T) {
	doc := mustParse(t)

	list := doc.ElementByID("task-list")
	if list == nil {
		t.Fatalf("expected task-list element")
	}
	rows := QueryAll(list, ByClass("task-item"))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if id, ok := Attr(rows[0], "data-task-id"); !ok || id != "42" {
		t.Fatalf("unexpected task id: %q %v", id, ok)
	}
	if got := Text(rows[0]); got != "Buy milk" {
		t.Fatalf("unexpected row text: %q", got)
	}

	checkbox := First(rows[0], ByClass("task-checkbox"))
	if Closest(checkbox, ByClass("task-item")) != rows[0] {
		t.Fatalf("expected closest row to be the first row")
	}
	if Closest(checkbox, ByTag("theme-machine")) != nil {
		t.Fatalf("checkbox should not be inside theme-machine")
	}

	SetChecked(checkbox, true)
	if !Checked(checkbox) {
		t.Fatalf("expected checkbox checked")
	}
	SetChecked(checkbox, false)
	if Checked(checkbox) {
		t.Fatalf("expected checkbox unchecked")
	}

	body := doc.Body()
	if !HasClass(body, "app") {
		t.Fatalf("expected body class app")
	}
	SetAttr(body, "data-theme", "dark")
	if v, _ := Attr(body, "data-theme"); v != "dark" {
		t.Fatalf("unexpected data-theme %q", v)
	}
	RemoveAttr(body, "data-theme")
	if _, ok := Attr(body, "data-theme"); ok {
		t.Fatalf("expected data-theme removed")
	}
	if doc.DocumentElement() == nil || !doc.Contains(body) {
		t.Fatalf("expected document element and attached body")
	}

	Remove(rows[1])
	if doc.Contains(rows[1]) {
		t.Fatalf("expected row to be detached")
	}
	if !strings.Contains(doc.String(), `data-task-id="42"`) || strings.Contains(doc.String(), "No id") {
		t.Fatalf("unexpected render: %s", doc.String())
	}
}

func TestDispatchBubblesThenDocument(t *testing.T) {
	doc := mustParse(t)
	list := doc.ElementByID("task-list")
	row := First(list, ByClass("task-item"))
	checkbox := First(row, ByClass("task-checkbox"))

	var order []string
	doc.AddEventListener(nil, "change", func(ctx context.Context, ev Event) {
		if ev.Target != checkbox || ev.Current != nil {
			t.Fatalf("unexpected document event: %#v", ev)
		}
		order = append(order, "document")
	})
	doc.AddEventListener(list, "change", func(ctx context.Context, ev Event) {
		if ev.Current != list {
			t.Fatalf("unexpected current node")
		}
		order = append(order, "list")
	})
	doc.AddEventListener(checkbox, "change", func(ctx context.Context, ev Event) {
		order = append(order, "checkbox")
	})
	doc.AddEventListener(checkbox, "click", func(ctx context.Context, ev Event) {
		order = append(order, "click")
	})

	doc.Dispatch(context.Background(), checkbox, "change")

	if strings.Join(order, ",") != "checkbox,list,document" {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
	if doc.ListenerCount(list, "change") != 1 || doc.ListenerCount(nil, "change") != 1 {
		t.Fatalf("unexpected listener counts")
	}
}

func TestParseRejectsFragmentsWithoutRoot(t *testing.T) {
	// html.Parse always synthesizes <html>, so any input yields a root.
	doc, err := ParseString("<p>hi</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Body() == nil {
		t.Fatalf("expected synthesized body")
	}
}
