package markup

import (
	"net/url"
	"path"
	"strings"
)

// Format identifies a tutorial markup language.
type Format string

const (
	Markdown Format = "markdown"
	AsciiDoc Format = "asciidoc"
)

// Converter turns raw markup into the common structural tree.
type Converter interface {
	Format() Format
	Convert(src []byte) (*Element, error)
}

// FormatForFile sniffs the format from a path or URI. "*.didact.adoc" and other
// AsciiDoc extensions select AsciiDoc; everything else is read as Markdown.
func FormatForFile(name string) Format {
	p := name
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".adoc", ".asciidoc", ".asc":
		return AsciiDoc
	default:
		return Markdown
	}
}

// ForFormat returns the converter for f.
func ForFormat(f Format) Converter {
	if f == AsciiDoc {
		return NewAsciiDoc()
	}
	return NewMarkdown()
}

// ForFile is shorthand for ForFormat(FormatForFile(name)).
func ForFile(name string) Converter {
	return ForFormat(FormatForFile(name))
}
