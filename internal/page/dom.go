package page

import (
	"strings"

	"golang.org/x/net/html"
)

// Matcher selects element nodes.
type Matcher func(n *html.Node) bool

// ByTag matches elements by tag name, including custom elements.
func ByTag(tag string) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// ByClass matches elements whose class list contains class.
func ByClass(class string) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && HasClass(n, class)
	}
}

// ByAttr matches elements whose attribute key equals value.
func ByAttr(key, value string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := Attr(n, key)
		return ok && v == value
	}
}

// ByName matches form controls by their name attribute.
func ByName(name string) Matcher {
	return ByAttr("name", name)
}

// HasAttr matches elements carrying the attribute key.
func HasAttr(key string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		_, ok := Attr(n, key)
		return ok
	}
}

// And matches when every matcher matches.
func And(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// QueryAll returns descendants of root (excluding root) matching m, in document order.
func QueryAll(root *html.Node, m Matcher) []*html.Node {
	var out []*html.Node
	if root == nil {
		return out
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// First returns the first descendant of root matching m, or nil.
func First(root *html.Node, m Matcher) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if found := First(c, m); found != nil {
			return found
		}
	}
	return nil
}

// Closest returns n or its nearest ancestor matching m, or nil.
func Closest(n *html.Node, m Matcher) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if m(p) {
			return p
		}
	}
	return nil
}

// IsInside reports whether n is ancestor or n itself.
func IsInside(n, ancestor *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Attr returns the value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key, replacing any existing value.
func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// ToggleAttr sets a boolean attribute when force is true and removes it otherwise.
func ToggleAttr(n *html.Node, key string, force bool) {
	if force {
		SetAttr(n, key, "")
		return
	}
	RemoveAttr(n, key)
}

// HasClass reports whether the class attribute lists class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Value returns a form control's value attribute.
func Value(n *html.Node) string {
	v, _ := Attr(n, "value")
	return v
}

// SetValue sets a form control's value attribute.
func SetValue(n *html.Node, value string) {
	SetAttr(n, "value", value)
}

// Checked reports whether a checkbox or radio carries the checked attribute.
func Checked(n *html.Node) bool {
	_, ok := Attr(n, "checked")
	return ok
}

// SetChecked sets or clears the checked attribute.
func SetChecked(n *html.Node, checked bool) {
	ToggleAttr(n, "checked", checked)
}

// Text returns the concatenated, whitespace-collapsed text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
