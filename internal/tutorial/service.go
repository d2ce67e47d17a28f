// Package tutorial ties the registry, parser pipeline, dispatcher and tree
// together behind the operations the HTTP, MCP and CLI surfaces expose.
package tutorial

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/didact/internal/actions"
	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/checksum"
	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/outline"
	"github.com/starford/didact/internal/registry"
	"github.com/starford/didact/internal/tree"
)

// Document is a fetched and parsed tutorial.
type Document struct {
	URI         string           `json:"uri"`
	Format      markup.Format    `json:"format"`
	Title       string           `json:"title"`
	Checksum    string           `json:"checksum"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Headings    []models.Heading `json:"headings"`
	Warnings    []string         `json:"warnings"`
	Actions     []models.Action  `json:"actions"`
	// LinkErrors maps action indexes to links that could not be decoded.
	LinkErrors map[int]string `json:"linkErrors,omitempty"`

	Root *markup.Element `json:"-"`
}

// Fetcher reads tutorial sources.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Notifier is told when the tree or the open tutorial changes.
type Notifier interface {
	TreeChanged()
	TutorialOpened(uri, title string)
}

// Service is safe for concurrent use; runs against one document dispatch
// sequentially.
type Service struct {
	reg      *registry.Registry
	fetcher  Fetcher
	disp     *dispatch.Dispatcher
	tree     *tree.Tree
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	current *Document
}

// NewService builds the service and its tree. notifier may be nil.
func NewService(reg *registry.Registry, f Fetcher, disp *dispatch.Dispatcher, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{reg: reg, fetcher: f, disp: disp, notifier: notifier, logger: logger}
	s.tree = tree.New(reg, s, logger)
	return s
}

// Tree returns the tutorial tree backed by this service.
func (s *Service) Tree() *tree.Tree { return s.tree }

// Registry returns the tutorial registry.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Load fetches and parses uri without making it current. Fetch and parse
// failures are returned as-is: a tutorial that cannot be read is not shown.
func (s *Service) Load(ctx context.Context, uri string) (*Document, error) {
	data, err := s.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.Parse(uri, data)
}

// Source returns the raw, unparsed content of uri.
func (s *Service) Source(ctx context.Context, uri string) ([]byte, error) {
	return s.fetcher.Fetch(ctx, uri)
}

// Parse builds a Document from raw markup; uri selects the format.
func (s *Service) Parse(uri string, data []byte) (*Document, error) {
	fm, _ := markup.SplitFrontmatter(data)
	format := markup.FormatForFile(uri)
	// Converters skip frontmatter themselves.
	root, err := markup.ForFormat(format).Convert(data)
	if err != nil {
		return nil, err
	}
	res := outline.ForFormat(format, s.logger).Extract(root)
	found, bad := actions.Extract(root)

	doc := &Document{
		URI:         uri,
		Format:      format,
		Checksum:    checksum.Sum(data),
		Frontmatter: fm,
		Headings:    nonNilSlice(res.Headings),
		Warnings:    nonNilSlice(res.Warnings),
		Actions:     nonNilSlice(found),
		Root:        root,
	}
	for i, err := range bad {
		if doc.LinkErrors == nil {
			doc.LinkErrors = make(map[int]string)
		}
		doc.LinkErrors[i] = err.Error()
	}
	doc.Title = title(uri, fm, res.Headings)
	return doc, nil
}

func title(uri string, fm map[string]any, hs []models.Heading) string {
	for _, k := range []string{"title", "name"} {
		if v := markup.FrontmatterString(fm, k); v != "" {
			return v
		}
	}
	if len(hs) > 0 {
		return hs[0].Title
	}
	base := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	for _, ext := range []string{".md", ".adoc", ".asciidoc", ".asc", ".didact"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Headings returns the outline of uri. It satisfies tree.HeadingSource.
func (s *Service) Headings(ctx context.Context, uri string) ([]models.Heading, error) {
	doc, err := s.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return doc.Headings, nil
}

// Open loads uri and makes it the current tutorial.
func (s *Service) Open(ctx context.Context, uri string) (*Document, error) {
	doc, err := s.Load(ctx, uri)
	if err != nil {
		s.logger.Warn("open tutorial failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return nil, err
	}
	s.mu.Lock()
	s.current = doc
	s.mu.Unlock()
	s.logger.Info("tutorial opened",
		slog.String("uri", uri),
		slog.String("title", doc.Title),
		slog.Int("actions", len(doc.Actions)),
	)
	if s.notifier != nil {
		s.notifier.TutorialOpened(uri, doc.Title)
	}
	return doc, nil
}

// Start opens the tutorial registered as (name, category).
func (s *Service) Start(ctx context.Context, name, category string) (*Document, error) {
	uri, ok, err := s.reg.ResolveURI(ctx, name, category)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tutorial %q in category %q: %w", name, category, apperr.ErrNotFound)
	}
	return s.Open(ctx, uri)
}

// Current returns the open tutorial, or nil.
func (s *Service) Current() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// document returns the current tutorial when it matches uri (or uri is
// empty), otherwise loads uri fresh.
func (s *Service) document(ctx context.Context, uri string) (*Document, error) {
	if cur := s.Current(); cur != nil && (uri == "" || uri == cur.URI) {
		return cur, nil
	}
	if uri == "" {
		return nil, fmt.Errorf("no tutorial open: %w", apperr.ErrNotFound)
	}
	return s.Load(ctx, uri)
}

// Register adds a tutorial to the registry and rebuilds the tree.
func (s *Service) Register(ctx context.Context, name, uri, category string) error {
	if err := s.reg.Register(ctx, name, uri, category); err != nil {
		return err
	}
	s.logger.Info("tutorial registered",
		slog.String("name", name),
		slog.String("category", category),
		slog.String("uri", uri),
	)
	return s.Refresh(ctx)
}

// Refresh rebuilds the category layer of the tree.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.tree.Refresh(ctx); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.TreeChanged()
	}
	return nil
}

// Dispatch runs the action at index of the tutorial at uri (the current
// tutorial when uri is empty).
func (s *Service) Dispatch(ctx context.Context, uri string, index int) (dispatch.Outcome, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if index < 0 || index >= len(doc.Actions) {
		return dispatch.Outcome{}, fmt.Errorf("action %d of %s: %w", index, doc.URI, apperr.ErrNotFound)
	}
	return s.disp.Dispatch(ctx, dispatch.Call{Action: doc.Actions[index], Source: doc.URI, Document: doc.Actions}), nil
}

// callContext returns the source and actions of the tutorial at uri, or of
// the current tutorial when uri is empty. With neither it returns empty
// values and no error.
func (s *Service) callContext(ctx context.Context, uri string) (string, []models.Action, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		if uri == "" {
			return "", nil, nil
		}
		return "", nil, err
	}
	return doc.URI, doc.Actions, nil
}

// DispatchLink runs an action given by its href, in the context of the
// tutorial at uri. Links that appear in the document keep their index;
// others are dispatched with index -1.
func (s *Service) DispatchLink(ctx context.Context, uri, href string) (dispatch.Outcome, error) {
	source, all, err := s.callContext(ctx, uri)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	for _, a := range all {
		if a.Href == href {
			return s.disp.Dispatch(ctx, dispatch.Call{Action: a, Source: source, Document: all}), nil
		}
	}
	a, err := actions.ParseLink(href, "")
	if err != nil {
		return dispatch.Outcome{}, &apperr.DispatchError{Msg: err.Error()}
	}
	a.Index = -1
	return s.disp.Dispatch(ctx, dispatch.Call{Action: a, Source: source, Document: all}), nil
}

// Execute dispatches capability directly, outside any link, on behalf of the
// tutorial at uri (or the current one).
func (s *Service) Execute(ctx context.Context, uri, capability string, params []string, named map[string]string) (dispatch.Outcome, error) {
	source, all, err := s.callContext(ctx, uri)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	a := models.Action{
		Capability: actions.NormalizeCapability(capability),
		Params:     params,
		Named:      named,
		Index:      -1,
		Kind:       models.KindCommand,
	}
	if actions.IsRequirement(a.Capability) {
		a.Kind = models.KindRequirement
	}
	return s.disp.Dispatch(ctx, dispatch.Call{Action: a, Source: source, Document: all}), nil
}

// Capabilities lists the capabilities the dispatcher knows.
func (s *Service) Capabilities() []string { return s.disp.Capabilities() }

// ClearRegistry removes every registration and rebuilds the tree.
func (s *Service) ClearRegistry(ctx context.Context) error {
	if err := s.reg.Clear(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Run dispatches the given action indexes of a tutorial in order, or every
// command link when indexes is empty. Requirement links are left to
// ValidateAll.
func (s *Service) Run(ctx context.Context, uri string, indexes []int) ([]dispatch.Outcome, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		return nil, err
	}
	var seq []models.Action
	if len(indexes) == 0 {
		seq = actions.Commands(doc.Actions)
	} else {
		for _, i := range indexes {
			if i < 0 || i >= len(doc.Actions) {
				return nil, fmt.Errorf("action %d of %s: %w", i, doc.URI, apperr.ErrNotFound)
			}
			seq = append(seq, doc.Actions[i])
		}
	}
	s.logger.Info("tutorial run", slog.String("uri", doc.URI), slog.Int("actions", len(seq)))
	return s.disp.Run(ctx, doc.URI, doc.Actions, seq), nil
}

// ValidateAll probes every requirement of the tutorial.
func (s *Service) ValidateAll(ctx context.Context, uri string) (dispatch.Outcome, error) {
	if _, err := s.document(ctx, uri); err != nil {
		return dispatch.Outcome{}, err
	}
	return s.Execute(ctx, uri, actions.ValidateAllRequirements, nil, nil)
}

// Requirements lists the requirement links of a tutorial.
func (s *Service) Requirements(ctx context.Context, uri string) ([]models.Action, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(actions.Requirements(doc.Actions)), nil
}

// Commands lists the command links of a tutorial.
func (s *Service) Commands(ctx context.Context, uri string) ([]models.Action, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(actions.Commands(doc.Actions)), nil
}

// RenderHTML renders a tutorial with every action link tagged by its index
// and capability, so outcomes can be shown against the link.
func (s *Service) RenderHTML(ctx context.Context, uri string) (string, error) {
	doc, err := s.document(ctx, uri)
	if err != nil {
		return "", err
	}
	return Render(doc)
}

// Render serialises doc to HTML with action link annotations.
func Render(doc *Document) (string, error) {
	idx := actions.LinkIndex(doc.Root)
	return markup.RenderString(doc.Root, func(el *markup.Element) map[string]string {
		i, ok := idx[el]
		if !ok {
			return nil
		}
		attrs := map[string]string{"data-didact-index": strconv.Itoa(i)}
		if i < len(doc.Actions) {
			attrs["data-didact-capability"] = doc.Actions[i].Capability
			attrs["data-didact-kind"] = string(doc.Actions[i].Kind)
		}
		return attrs
	})
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
