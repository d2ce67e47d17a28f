// Package library registers the tutorials found in a local directory and
// keeps the registry in step with it while it changes.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/checksum"
	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
)

// Tutorial file suffixes picked up from the library directory.
var suffixes = []string{".didact.md", ".didact.adoc", ".didact.asciidoc"}

// IsTutorialFile reports whether name looks like a didact tutorial.
func IsTutorialFile(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Registrar records tutorials.
type Registrar interface {
	Register(ctx context.Context, name, uri, category string) error
}

// Library mirrors a directory of tutorial files into a Registrar.
type Library struct {
	root            string
	defaultCategory string
	reg             Registrar
	logger          *slog.Logger

	mu    sync.Mutex
	known map[string]string // absolute path → checksum
}

// New returns a Library for dir. Files without a category in their
// frontmatter are registered under defaultCategory.
func New(dir, defaultCategory string, reg Registrar, logger *slog.Logger) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library: resolve dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		root:            abs,
		defaultCategory: defaultCategory,
		reg:             reg,
		logger:          logger,
		known:           make(map[string]string),
	}, nil
}

// Root returns the absolute library directory.
func (l *Library) Root() string { return l.root }

// Describe derives the registration of a tutorial file: name and category
// come from frontmatter when present, otherwise from the file name and the
// default category.
func (l *Library) Describe(path string, data []byte) models.Tutorial {
	fm, _ := markup.SplitFrontmatter(data)
	name := markup.FrontmatterString(fm, "name")
	if name == "" {
		name = markup.FrontmatterString(fm, "title")
	}
	if name == "" {
		base := filepath.Base(path)
		for _, s := range suffixes {
			if strings.HasSuffix(strings.ToLower(base), s) {
				base = base[:len(base)-len(s)]
				break
			}
		}
		name = base
	}
	category := markup.FrontmatterString(fm, "category")
	if category == "" {
		category = l.defaultCategory
	}
	return models.Tutorial{Name: name, Category: category, SourceURI: path}
}

// Sync walks the library and registers every tutorial not seen before. It
// returns the registrations it added.
func (l *Library) Sync(ctx context.Context) ([]models.Tutorial, error) {
	if _, err := os.Stat(l.root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var added []models.Tutorial
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsTutorialFile(d.Name()) {
			return nil
		}
		t, ok, err := l.registerFile(ctx, p)
		if err != nil {
			l.logger.Warn("library: register failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		if ok {
			added = append(added, t)
		}
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("library: sync: %w", err)
	}
	return added, nil
}

// registerFile registers the tutorial at p. It reports false when the file
// is unchanged or already registered under the same name and category.
func (l *Library) registerFile(ctx context.Context, p string) (models.Tutorial, bool, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return models.Tutorial{}, false, err
	}
	if len(data) == 0 {
		// Still being written; the Write event follows.
		return models.Tutorial{}, false, nil
	}
	l.mu.Lock()
	unchanged := checksum.Matches(data, l.known[p])
	l.known[p] = checksum.Sum(data)
	l.mu.Unlock()
	if unchanged {
		return models.Tutorial{}, false, nil
	}

	t := l.Describe(p, data)
	if err := l.reg.Register(ctx, t.Name, t.SourceURI, t.Category); err != nil {
		var dup *apperr.DuplicateTutorialError
		if errors.As(err, &dup) {
			return t, false, nil
		}
		return t, false, err
	}
	l.logger.Info("library: tutorial registered",
		slog.String("name", t.Name),
		slog.String("category", t.Category),
		slog.String("path", p),
	)
	return t, true, nil
}

func (l *Library) forget(p string) {
	l.mu.Lock()
	delete(l.known, p)
	l.mu.Unlock()
}
