package robot

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/motionctl/internal/config"
)

// Named pairs a scenario name with its result.
type Named struct {
	Name   string
	Result *Result
}

// Sweep simulates every scenario concurrently, at most limit at a time
// (limit <= 0 means no limit). Results come back sorted by name.
func Sweep(ctx context.Context, scenarios map[string]*config.Config, limit int, opts ...Option) ([]Named, error) {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]Named, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			s, err := NewSimulation(scenarios[name], opts...)
			if err != nil {
				return err
			}
			res, err := s.Run(gctx)
			if err != nil {
				return err
			}
			results[i] = Named{Name: name, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
