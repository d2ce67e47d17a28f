package markup

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/starford/didact/internal/apperr"
)

// MarkdownConverter walks a goldmark AST. Heading attributes
// ("## Title {time=5}") become element attributes and are removed from the
// visible title.
type MarkdownConverter struct {
	md goldmark.Markdown
}

// NewMarkdown returns a converter with GFM extensions and heading attributes.
func NewMarkdown() *MarkdownConverter {
	return &MarkdownConverter{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
			parser.WithAutoHeadingID(),
		),
	)}
}

func (c *MarkdownConverter) Format() Format { return Markdown }

// Convert parses src. Leading YAML frontmatter is skipped.
func (c *MarkdownConverter) Convert(src []byte) (*Element, error) {
	if !utf8.Valid(src) {
		return nil, &apperr.ParseError{Format: string(Markdown), Msg: "document is not valid UTF-8"}
	}
	_, body := SplitFrontmatter(src)

	doc := c.md.Parser().Parse(text.NewReader(body))

	root := NewElement(DocumentTag)
	w := mdWalker{src: body}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		els, err := w.convert(n)
		if err != nil {
			return nil, &apperr.ParseError{Format: string(Markdown), Msg: err.Error(), Err: err}
		}
		root.Append(els...)
	}
	return root, nil
}

type mdWalker struct {
	src []byte
}

func (w mdWalker) convert(n ast.Node) ([]*Element, error) {
	var el *Element

	switch node := n.(type) {
	case *ast.Heading:
		el = NewElement("h" + strconv.Itoa(node.Level))
	case *ast.Paragraph:
		el = NewElement("p")
	case *ast.TextBlock:
		return w.children(n)
	case *ast.Text:
		out := []*Element{NewText(string(node.Segment.Value(w.src)))}
		switch {
		case node.HardLineBreak():
			out = append(out, NewElement("br"))
		case node.SoftLineBreak():
			out = append(out, NewText("\n"))
		}
		return out, nil
	case *ast.String:
		return []*Element{NewText(string(node.Value))}, nil
	case *ast.CodeSpan:
		el = NewElement("code")
	case *ast.Emphasis:
		if node.Level >= 2 {
			el = NewElement("strong")
		} else {
			el = NewElement("em")
		}
	case *ast.Link:
		el = NewElement("a")
		el.Attrs["href"] = string(node.Destination)
		if len(node.Title) > 0 {
			el.Attrs["title"] = string(node.Title)
		}
	case *ast.AutoLink:
		el = NewElement("a")
		el.Attrs["href"] = string(node.URL(w.src))
		el.Append(NewText(string(node.Label(w.src))))
		return []*Element{el}, nil
	case *ast.Image:
		el = NewElement("img")
		el.Attrs["src"] = string(node.Destination)
		if len(node.Title) > 0 {
			el.Attrs["title"] = string(node.Title)
		}
		alt := NewElement("span")
		kids, err := w.children(n)
		if err != nil {
			return nil, err
		}
		alt.Append(kids...)
		el.Attrs["alt"] = alt.TextContent()
		return []*Element{el}, nil
	case *ast.RawHTML:
		var b bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			b.Write(seg.Value(w.src))
		}
		return []*Element{{Tag: RawTag, Text: b.String()}}, nil
	case *ast.HTMLBlock:
		var b bytes.Buffer
		w.writeLines(&b, n)
		if node.HasClosure() {
			b.Write(node.ClosureLine.Value(w.src))
		}
		return ParseFragment(b.String(), "body")
	case *ast.FencedCodeBlock:
		code := NewElement("code")
		if lang := node.Language(w.src); len(lang) > 0 {
			code.Attrs["class"] = "language-" + string(lang)
		}
		var b bytes.Buffer
		w.writeLines(&b, n)
		code.Append(NewText(b.String()))
		pre := NewElement("pre")
		pre.Append(code)
		return []*Element{pre}, nil
	case *ast.CodeBlock:
		var b bytes.Buffer
		w.writeLines(&b, n)
		code := NewElement("code")
		code.Append(NewText(b.String()))
		pre := NewElement("pre")
		pre.Append(code)
		return []*Element{pre}, nil
	case *ast.Blockquote:
		el = NewElement("blockquote")
	case *ast.List:
		if node.IsOrdered() {
			el = NewElement("ol")
			if node.Start > 1 {
				el.Attrs["start"] = strconv.Itoa(node.Start)
			}
		} else {
			el = NewElement("ul")
		}
	case *ast.ListItem:
		el = NewElement("li")
	case *ast.ThematicBreak:
		return []*Element{NewElement("hr")}, nil
	case *east.TaskCheckBox:
		el = NewElement("input")
		el.Attrs["type"] = "checkbox"
		el.Attrs["disabled"] = ""
		if node.IsChecked {
			el.Attrs["checked"] = ""
		}
		return []*Element{el}, nil
	case *east.Strikethrough:
		el = NewElement("del")
	case *east.Table:
		el = NewElement("table")
	case *east.TableHeader:
		row := NewElement("tr")
		kids, err := w.children(n)
		if err != nil {
			return nil, err
		}
		for _, k := range kids {
			if k.Tag == "td" {
				k.Tag = "th"
			}
		}
		row.Append(kids...)
		head := NewElement("thead")
		head.Append(row)
		return []*Element{head}, nil
	case *east.TableRow:
		el = NewElement("tr")
	case *east.TableCell:
		el = NewElement("td")
	default:
		return w.children(n)
	}

	for _, a := range n.Attributes() {
		el.Attrs[string(a.Name)] = attrString(a.Value)
	}
	kids, err := w.children(n)
	if err != nil {
		return nil, err
	}
	el.Append(kids...)
	if err := inlineRaw(el); err != nil {
		return nil, err
	}
	return []*Element{el}, nil
}

func (w mdWalker) children(n ast.Node) ([]*Element, error) {
	var out []*Element
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		els, err := w.convert(c)
		if err != nil {
			return nil, err
		}
		out = append(out, els...)
	}
	return out, nil
}

func (w mdWalker) writeLines(b *bytes.Buffer, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.src))
	}
}

// inlineRaw re-parses an element whose children mix text with inline raw HTML
// so that tags such as <span id="badge"> become real elements.
func inlineRaw(el *Element) error {
	hasRaw := false
	for _, c := range el.Children {
		if c.Tag == RawTag {
			hasRaw = true
			break
		}
	}
	if !hasRaw {
		return nil
	}
	var b bytes.Buffer
	for _, c := range el.Children {
		if err := Render(&b, c, nil); err != nil {
			return err
		}
	}
	kids, err := ParseFragment(b.String(), el.Tag)
	if err != nil {
		return err
	}
	el.Children = kids
	return nil
}

func attrString(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
