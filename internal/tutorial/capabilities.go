package tutorial

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/didact/internal/actions"
	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/fetcher"
)

type openResult struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// RegisterCapabilities adds the tutorial-level capabilities (open, start,
// register, refresh) to the service's dispatcher.
func (s *Service) RegisterCapabilities() error {
	caps := []dispatch.Capability{
		{Name: actions.OpenTutorial, MinParams: 1, Handler: s.openCapability},
		{Name: actions.StartDidact, MinParams: 1, Handler: s.startCapability},
		{Name: actions.RegisterTutorial, MinParams: 3, Handler: s.registerCapability},
		{Name: actions.RefreshView, Handler: func(ctx context.Context, _ dispatch.Call) (any, error) {
			return nil, s.Refresh(ctx)
		}},
	}
	for _, c := range caps {
		if err := s.disp.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) openCapability(ctx context.Context, c dispatch.Call) (any, error) {
	doc, err := s.Open(ctx, fetcher.Resolve(c.Source, c.Action.Params[0]))
	if err != nil {
		return nil, err
	}
	return openResult{URI: doc.URI, Title: doc.Title}, nil
}

// startCapability opens a registered tutorial. Without a category the first
// registration with a matching name is used.
func (s *Service) startCapability(ctx context.Context, c dispatch.Call) (any, error) {
	name := c.Action.Params[0]
	category := ""
	if len(c.Action.Params) > 1 {
		category = c.Action.Params[1]
	}
	if category == "" {
		all, err := s.reg.List(ctx)
		if err != nil {
			return nil, err
		}
		found := false
		for _, t := range all {
			if strings.EqualFold(t.Name, name) {
				category, found = t.Category, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("tutorial %q: %w", name, apperr.ErrNotFound)
		}
	}
	doc, err := s.Start(ctx, name, category)
	if err != nil {
		return nil, err
	}
	return openResult{URI: doc.URI, Title: doc.Title}, nil
}

func (s *Service) registerCapability(ctx context.Context, c dispatch.Call) (any, error) {
	p := c.Action.Params
	uri := fetcher.Resolve(c.Source, p[1])
	if err := s.Register(ctx, p[0], uri, p[2]); err != nil {
		return nil, err
	}
	return map[string]string{"name": p[0], "uri": uri, "category": p[2]}, nil
}
