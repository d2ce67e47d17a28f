package markup

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses an HTML document or fragment and returns a #document
// element holding the contents of its <body>.
func ParseHTML(src []byte) (*Element, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := NewElement(DocumentTag)
	start := findBody(doc)
	if start == nil {
		start = doc
	}
	for c := start.FirstChild; c != nil; c = c.NextSibling {
		root.Append(FromHTML(c))
	}
	return root, nil
}

// ParseFragment parses src as the inner HTML of an element with the given tag.
func ParseFragment(src string, contextTag string) ([]*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: contextTag, DataAtom: atom.Lookup([]byte(contextTag))}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := FromHTML(n); el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

// FromHTML converts an html.Node subtree. Comments and doctypes are dropped.
func FromHTML(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		return NewText(n.Data)
	case html.ElementNode, html.DocumentNode:
		tag := n.Data
		if n.Type == html.DocumentNode {
			tag = DocumentTag
		}
		el := NewElement(tag)
		for _, a := range n.Attr {
			el.Attrs[a.Key] = a.Val
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			el.Append(FromHTML(c))
		}
		return el
	case html.RawNode:
		return &Element{Tag: RawTag, Text: n.Data}
	default:
		return nil
	}
}

// Decorator returns extra attributes to emit for an element, or nil.
type Decorator func(*Element) map[string]string

// Render serialises the tree as HTML. The #document wrapper is not emitted.
func Render(w io.Writer, root *Element, decorate Decorator) error {
	if root.Tag == DocumentTag {
		for _, c := range root.Children {
			if err := html.Render(w, toHTML(c, decorate)); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, toHTML(root, decorate))
}

// RenderString is Render into a string.
func RenderString(root *Element, decorate Decorator) (string, error) {
	var b strings.Builder
	if err := Render(&b, root, decorate); err != nil {
		return "", err
	}
	return b.String(), nil
}

func toHTML(e *Element, decorate Decorator) *html.Node {
	switch e.Tag {
	case TextTag:
		return &html.Node{Type: html.TextNode, Data: e.Text}
	case RawTag:
		return &html.Node{Type: html.RawNode, Data: e.Text}
	}
	n := &html.Node{Type: html.ElementNode, Data: e.Tag, DataAtom: atom.Lookup([]byte(e.Tag))}
	attrs := e.Attrs
	if decorate != nil {
		if extra := decorate(e); len(extra) > 0 {
			attrs = maps.Clone(attrs)
			if attrs == nil {
				attrs = make(map[string]string, len(extra))
			}
			maps.Copy(attrs, extra)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	for _, c := range e.Children {
		n.AppendChild(toHTML(c, decorate))
	}
	return n
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
