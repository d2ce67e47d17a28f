// Package markup normalises Markdown and AsciiDoc tutorials into one
// format-agnostic element tree.
package markup

import (
	"slices"
	"strings"
)

// Pseudo-tags for nodes that are not HTML elements.
const (
	DocumentTag = "#document"
	TextTag     = "#text"
	// RawTag holds inline markup passed through verbatim.
	RawTag = "#raw"
)

// Element is a node of the structural tree. A tree is produced fresh by every
// Convert call and is owned by that caller.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Children []*Element
	// Text is set on text and raw nodes only.
	Text string
}

// NewElement returns an element with the given tag and a non-nil attribute map.
func NewElement(tag string) *Element {
	return &Element{Tag: tag, Attrs: make(map[string]string)}
}

// NewText returns a text node.
func NewText(s string) *Element {
	return &Element{Tag: TextTag, Text: s}
}

// Append adds children in order, skipping nils.
func (e *Element) Append(children ...*Element) {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
}

// Attr returns the attribute value and whether it was set.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Classes returns the space-delimited class list.
func (e *Element) Classes() []string {
	return strings.Fields(e.Attrs["class"])
}

// HasClass reports whether name is one of the element's classes.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

// IsText reports whether e is a text node.
func (e *Element) IsText() bool { return e.Tag == TextTag }

// TextContent returns the concatenated visible text below e, trimmed.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.Walk(func(n *Element) bool {
		if n.Tag == TextTag {
			b.WriteString(n.Text)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

// Walk visits e and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Find returns the first descendant of e (excluding e) matching pred.
func (e *Element) Find(pred func(*Element) bool) *Element {
	for _, c := range e.Children {
		if pred(c) {
			return c
		}
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindByID returns the first descendant with the given id attribute.
func (e *Element) FindByID(id string) *Element {
	return e.Find(func(n *Element) bool { return n.Attrs["id"] == id })
}

// HeadingLevel returns 1..6 for h1..h6 tags (any case), otherwise 0.
func HeadingLevel(tag string) int {
	if len(tag) != 2 || (tag[0] != 'h' && tag[0] != 'H') {
		return 0
	}
	if tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}
