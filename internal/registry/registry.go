// Package registry maps (name, category) pairs to tutorial source documents.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/settings"
)

// DefaultKey is the configuration key the registry is persisted under.
const DefaultKey = "didact.registered"

// Registry is the persisted list of tutorial registrations.
//
// Duplicate detection and Categories compare case-insensitively, while
// Tutorials matches the category exactly. The asymmetry is deliberate and kept
// for compatibility with existing registrations.
type Registry struct {
	store settings.Store
	key   string
	mu    sync.Mutex
}

// New returns a registry persisted in store under key (DefaultKey if empty).
func New(store settings.Store, key string) *Registry {
	if key == "" {
		key = DefaultKey
	}
	return &Registry{store: store, key: key}
}

// Register appends a tutorial unless (name, category) is already present.
func (r *Registry) Register(ctx context.Context, name, sourceURI, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	t := models.Tutorial{Name: name, Category: category, SourceURI: sourceURI}
	for _, e := range entries {
		if e.SameKey(t) {
			return &apperr.DuplicateTutorialError{Name: name, Category: category}
		}
	}
	return r.save(ctx, append(entries, t))
}

// List returns every registration in registration order.
func (r *Registry) List(ctx context.Context) ([]models.Tutorial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Categories returns the distinct categories in registration order. The first
// spelling of a category wins.
func (r *Registry) Categories(ctx context.Context) ([]string, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		k := strings.ToLower(e.Category)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e.Category)
	}
	return out, nil
}

// Tutorials returns the names registered under exactly category.
func (r *Registry) Tutorials(ctx context.Context, category string) ([]string, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e.Name)
		}
	}
	return out, nil
}

// ResolveURI returns the source URI stored for (name, category).
func (r *Registry) ResolveURI(ctx context.Context, name, category string) (string, bool, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return "", false, err
	}
	want := models.Tutorial{Name: name, Category: category}
	for _, e := range entries {
		if e.SameKey(want) {
			return e.SourceURI, true, nil
		}
	}
	return "", false, nil
}

// Clear removes every registration.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, nil)
}

func (r *Registry) load(ctx context.Context) ([]models.Tutorial, error) {
	raw, err := r.store.Load(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("registry: load: %w", err)
	}
	out := make([]models.Tutorial, 0, len(raw))
	for i, s := range raw {
		var t models.Tutorial
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("registry: decode entry %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Registry) save(ctx context.Context, entries []models.Tutorial) error {
	raw := make([]string, 0, len(entries))
	for _, t := range entries {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("registry: encode %s: %w", t.Name, err)
		}
		raw = append(raw, string(b))
	}
	if err := r.store.Save(ctx, r.key, raw); err != nil {
		return fmt.Errorf("registry: save: %w", err)
	}
	return nil
}
