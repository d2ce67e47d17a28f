package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/tutorial"
)

func TestShowMarkdown_AsciiDocOutline(t *testing.T) {
	five := 5.0
	doc := &tutorial.Document{
		Format: markup.AsciiDoc,
		Title:  "Intro",
		Headings: []models.Heading{
			{Title: "Setup", Level: 2, TimeEstimate: &five},
		},
		Actions: []models.Action{
			{Index: 0, Kind: models.KindCommand, Capability: "didact.startTerminalWithName", LinkText: "a|b"},
		},
	}
	out := showMarkdown(doc, nil)
	if !strings.Contains(out, "## Setup (~5 mins)") {
		t.Errorf("outline missing: %q", out)
	}
	if !strings.Contains(out, `a\|b`) {
		t.Errorf("link text not escaped: %q", out)
	}
}

func TestShowMarkdown_MarkdownBodyWithoutFrontmatter(t *testing.T) {
	doc := &tutorial.Document{Format: markup.Markdown, Title: "T"}
	out := showMarkdown(doc, []byte("---\ntitle: T\n---\n# Body\n"))
	if strings.Contains(out, "title: T") || !strings.Contains(out, "# Body") {
		t.Errorf("out = %q", out)
	}
}

func TestAbsRef(t *testing.T) {
	if got := absRef("https://example.com/a.didact.md"); got != "https://example.com/a.didact.md" {
		t.Errorf("remote changed: %q", got)
	}
	if got := absRef("a.didact.md"); !filepath.IsAbs(got) {
		t.Errorf("local not absolute: %q", got)
	}
}
