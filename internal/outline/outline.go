// Package outline extracts the heading outline and time estimates from a
// normalised tutorial tree.
package outline

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
)

// Result is an outline in document order plus the warnings raised while
// reading time estimates.
type Result struct {
	Headings []models.Heading
	Warnings []string
}

// Extractor reads headings from a tree produced by one markup format.
type Extractor interface {
	Extract(root *markup.Element) Result
}

// ForFormat selects the extraction strategy for f. logger may be nil.
func ForFormat(f markup.Format, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if f == markup.AsciiDoc {
		return &AsciiDoc{logger: logger}
	}
	return &Markdown{logger: logger}
}

// Estimated filters headings down to those with a time estimate, preserving order.
func Estimated(headings []models.Heading) []models.Heading {
	var out []models.Heading
	for _, h := range headings {
		if h.Estimated() {
			out = append(out, h)
		}
	}
	return out
}

// ParseEstimate parses a time token strictly: the whole token must be a
// finite number.
func ParseEstimate(token string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Markdown reads top-level headings and their "time" attribute.
type Markdown struct {
	logger *slog.Logger
}

func (m *Markdown) Extract(root *markup.Element) Result {
	var res Result
	for _, el := range root.Children {
		level := markup.HeadingLevel(el.Tag)
		if level == 0 {
			continue
		}
		h := models.Heading{Title: el.TextContent(), Level: level}
		if token, ok := el.Attr("time"); ok {
			if v, valid := ParseEstimate(token); valid {
				h.TimeEstimate = &v
			} else {
				res.warn(m.logger, h.Title, token)
			}
		}
		res.Headings = append(res.Headings, h)
	}
	return res
}

// AsciiDoc reads every heading in document order. A heading gets an estimate
// when it is the first heading inside a div whose class list carries a
// "time=<n>" token.
type AsciiDoc struct {
	logger *slog.Logger
}

func (a *AsciiDoc) Extract(root *markup.Element) Result {
	var res Result
	tokens := make(map[*markup.Element]string)

	root.Walk(func(el *markup.Element) bool {
		if el.Tag != "div" {
			return true
		}
		if token, ok := timeClass(el); ok {
			if h := firstHeading(el); h != nil {
				if _, seen := tokens[h]; !seen {
					tokens[h] = token
				}
			}
		}
		return true
	})

	root.Walk(func(el *markup.Element) bool {
		level := markup.HeadingLevel(el.Tag)
		if level == 0 {
			return true
		}
		h := models.Heading{Title: el.TextContent(), Level: level}
		if token, ok := tokens[el]; ok {
			if v, valid := ParseEstimate(token); valid {
				h.TimeEstimate = &v
			} else {
				res.warn(a.logger, h.Title, token)
			}
		}
		res.Headings = append(res.Headings, h)
		return false
	})
	return res
}

// NodeFromDiv builds a heading from a time-annotated div: the title is the
// first h1..h6 below it and the estimate comes from its "time=" class token.
// It returns false when the div has no time token or no heading.
func NodeFromDiv(div *markup.Element) (models.Heading, bool) {
	token, ok := timeClass(div)
	if !ok {
		return models.Heading{}, false
	}
	el := firstHeading(div)
	if el == nil {
		return models.Heading{}, false
	}
	h := models.Heading{Title: el.TextContent(), Level: markup.HeadingLevel(el.Tag)}
	if v, valid := ParseEstimate(token); valid {
		h.TimeEstimate = &v
	}
	return h, true
}

func timeClass(el *markup.Element) (string, bool) {
	for _, c := range el.Classes() {
		if v, ok := strings.CutPrefix(c, "time="); ok {
			return v, true
		}
	}
	return "", false
}

func firstHeading(el *markup.Element) *markup.Element {
	return el.Find(func(n *markup.Element) bool { return markup.HeadingLevel(n.Tag) > 0 })
}

func (r *Result) warn(logger *slog.Logger, title, token string) {
	msg := fmt.Sprintf("heading %q has invalid time estimate %q", title, token)
	r.Warnings = append(r.Warnings, msg)
	logger.Warn("outline: invalid time estimate",
		slog.String("heading", title),
		slog.String("token", token))
}
