// Package tree presents registered tutorials as a lazily populated
// Category → Tutorial → Heading hierarchy.
package tree

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/outline"
)

// Kind tags the node variant.
type Kind int

const (
	KindCategory Kind = iota
	KindTutorial
	KindHeading
)

func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindTutorial:
		return "tutorial"
	case KindHeading:
		return "heading"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts the names written by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "category":
		*k = KindCategory
	case "tutorial":
		*k = KindTutorial
	case "heading":
		*k = KindHeading
	default:
		return fmt.Errorf("tree: unknown node kind %q", b)
	}
	return nil
}

// Node is one entry of the tree. Only the fields of its Kind are set:
// categories carry Label; tutorials add Category, URI, TimeLabel and
// Expandable; headings add Category, Tutorial, URI and TimeLabel.
type Node struct {
	Kind       Kind    `json:"kind"`
	Label      string  `json:"label"`
	Category   string  `json:"category,omitempty"`
	Tutorial   string  `json:"tutorial,omitempty"`
	URI        string  `json:"uri,omitempty"`
	TimeLabel  string  `json:"timeLabel,omitempty"`
	Expandable bool    `json:"expandable"`
	Children   []*Node `json:"children,omitempty"`

	loaded bool
}

// Registry is the read side of the tutorial registry.
type Registry interface {
	Categories(ctx context.Context) ([]string, error)
	Tutorials(ctx context.Context, category string) ([]string, error)
	ResolveURI(ctx context.Context, name, category string) (string, bool, error)
}

// HeadingSource loads the outline of a tutorial document.
type HeadingSource interface {
	Headings(ctx context.Context, uri string) ([]models.Heading, error)
}

// Tree is safe for concurrent use.
type Tree struct {
	reg    Registry
	src    HeadingSource
	logger *slog.Logger

	mu    sync.Mutex
	roots []*Node
	built bool
}

// New returns an empty tree; nothing is loaded until Children is called.
func New(reg Registry, src HeadingSource, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{reg: reg, src: src, logger: logger}
}

// Children returns the children of parent, computing them on first use.
// A nil parent yields the category layer.
func (t *Tree) Children(ctx context.Context, parent *Node) ([]*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if parent == nil {
		if !t.built {
			if err := t.buildCategories(ctx); err != nil {
				return nil, err
			}
		}
		return t.roots, nil
	}
	if !parent.loaded {
		if err := t.load(ctx, parent); err != nil {
			return nil, err
		}
	}
	return parent.Children, nil
}

// Refresh discards every node and rebuilds the category layer from the
// registry. Deeper layers load again on demand.
func (t *Tree) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots, t.built = nil, false
	return t.buildCategories(ctx)
}

// Expand loads the whole tree and returns the category layer.
func (t *Tree) Expand(ctx context.Context) ([]*Node, error) {
	roots, err := t.Children(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range roots {
		tuts, err := t.Children(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, tut := range tuts {
			if _, err := t.Children(ctx, tut); err != nil {
				return nil, err
			}
		}
	}
	return roots, nil
}

func (t *Tree) buildCategories(ctx context.Context) error {
	cats, err := t.reg.Categories(ctx)
	if err != nil {
		return fmt.Errorf("tree: categories: %w", err)
	}
	var roots []*Node
	for _, c := range cats {
		roots = appendUnique(roots, &Node{Kind: KindCategory, Label: c, Expandable: true})
	}
	t.roots, t.built = roots, true
	return nil
}

func (t *Tree) load(ctx context.Context, parent *Node) error {
	switch parent.Kind {
	case KindCategory:
		names, err := t.reg.Tutorials(ctx, parent.Label)
		if err != nil {
			return fmt.Errorf("tree: tutorials of %s: %w", parent.Label, err)
		}
		var kids []*Node
		for _, name := range names {
			n, err := t.tutorialNode(ctx, parent.Label, name)
			if err != nil {
				return err
			}
			kids = appendUnique(kids, n)
		}
		parent.Children = kids
	case KindTutorial:
		headings, err := t.headings(ctx, parent.URI)
		if err != nil {
			t.logger.Warn("tree: load headings",
				slog.String("tutorial", parent.Label),
				slog.String("uri", parent.URI),
				slog.String("error", err.Error()),
			)
		}
		parent.Children = headingNodes(parent, outline.Estimated(headings))
	}
	parent.loaded = true
	return nil
}

func (t *Tree) tutorialNode(ctx context.Context, category, name string) (*Node, error) {
	uri, ok, err := t.reg.ResolveURI(ctx, name, category)
	if err != nil {
		return nil, fmt.Errorf("tree: resolve %s: %w", name, err)
	}
	n := &Node{Kind: KindTutorial, Label: name, Category: category}
	if !ok {
		n.loaded = true
		return n, nil
	}
	n.URI = uri
	headings, err := t.headings(ctx, uri)
	if err != nil {
		// An unreadable tutorial still appears, without children.
		t.logger.Warn("tree: load tutorial",
			slog.String("tutorial", name),
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
		n.loaded = true
		return n, nil
	}
	est := outline.Estimated(headings)
	n.Expandable = len(est) > 0
	if total := totalMinutes(est); total > 0 {
		n.TimeLabel = models.Heading{TimeEstimate: &total}.Description()
	}
	// Headings come from the same parse.
	n.Children = headingNodes(n, est)
	n.loaded = true
	return n, nil
}

func headingNodes(parent *Node, est []models.Heading) []*Node {
	var kids []*Node
	for _, h := range est {
		kids = appendUnique(kids, &Node{
			Kind:      KindHeading,
			Label:     h.Title,
			Category:  parent.Category,
			Tutorial:  parent.Label,
			URI:       parent.URI,
			TimeLabel: h.Description(),
		})
	}
	return kids
}

func (t *Tree) headings(ctx context.Context, uri string) ([]models.Heading, error) {
	if t.src == nil || uri == "" {
		return nil, nil
	}
	return t.src.Headings(ctx, uri)
}

func totalMinutes(hs []models.Heading) float64 {
	var sum float64
	for _, h := range hs {
		sum += *h.TimeEstimate
	}
	return sum
}

// appendUnique appends n unless a sibling with the same label exists.
func appendUnique(list []*Node, n *Node) []*Node {
	for _, existing := range list {
		if existing.Label == n.Label {
			return list
		}
	}
	return append(list, n)
}

// FindCategoryNode scans the loaded category layer.
func (t *Tree) FindCategoryNode(category string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findCategory(category)
}

func (t *Tree) findCategory(category string) *Node {
	for _, n := range t.roots {
		if n.Label == category {
			return n
		}
	}
	return nil
}

// FindTutorialNode scans the loaded tutorials of category.
func (t *Tree) FindTutorialNode(category, name string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findTutorial(category, name)
}

func (t *Tree) findTutorial(category, name string) *Node {
	c := t.findCategory(category)
	if c == nil {
		return nil
	}
	for _, n := range c.Children {
		if n.Label == name {
			return n
		}
	}
	return nil
}

// FindHeadingNode scans the loaded headings of a tutorial.
func (t *Tree) FindHeadingNode(category, tutorial, title string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	tut := t.findTutorial(category, tutorial)
	if tut == nil {
		return nil
	}
	for _, n := range tut.Children {
		if n.Label == title {
			return n
		}
	}
	return nil
}

// Parent looks up the parent of n in the current tree. It works for nodes
// from before a Refresh as long as their labels still resolve.
func (t *Tree) Parent(n *Node) *Node {
	if n == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch n.Kind {
	case KindTutorial:
		return t.findCategory(n.Category)
	case KindHeading:
		return t.findTutorial(n.Category, n.Tutorial)
	}
	return nil
}
