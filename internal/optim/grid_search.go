// Package optim searches controller gains for the simulated speed loop.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/metrics"
	"github.com/san-kum/motionctl/internal/robot"
)

var ErrNoCandidates = errors.New("optim: no parameter combinations to try")

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params map[string]float64
	Score  float64
}

// GridSearch evaluates every combination of parameter values. Parameter
// names are those accepted by control.Bank.SetParam: kp, ki, kd,
// integral_limit.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: 4}
}

func (g *GridSearch) SetWorkers(n int) { g.workers = n }

func (g *GridSearch) combinations() []map[string]float64 {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil
	}
	var out []map[string]float64
	var walk func(depth int, current map[string]float64)
	walk = func(depth int, current map[string]float64) {
		if depth == len(g.paramNames) {
			out = append(out, current)
			return
		}
		for _, val := range g.ranges[depth] {
			next := make(map[string]float64, len(current)+1)
			for k, v := range current {
				next[k] = v
			}
			next[g.paramNames[depth]] = val
			walk(depth+1, next)
		}
	}
	walk(0, map[string]float64{})
	return out
}

// Search runs a speed-only simulation of base for duration per combination
// and returns every candidate sorted by the named metric, lowest first.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, duration time.Duration, metricName string) ([]Candidate, error) {
	combos := g.combinations()
	if len(combos) == 0 {
		return nil, ErrNoCandidates
	}

	var (
		mu      sync.Mutex
		results = make([]Candidate, 0, len(combos))
	)
	eg, ectx := errgroup.WithContext(ctx)
	if g.workers > 0 {
		eg.SetLimit(g.workers)
	}
	for _, params := range combos {
		params := params
		eg.Go(func() error {
			score, err := evaluate(ectx, base, params, duration, metricName)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, Candidate{Params: params, Score: score})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	return results, nil
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, duration time.Duration, metricName string) (float64, error) {
	cfg := base.Clone()
	for name, v := range params {
		switch name {
		case "kp":
			cfg.Controller.Kp = v
		case "ki":
			cfg.Controller.Ki = v
		case "kd":
			cfg.Controller.Kd = v
		case "integral_limit":
			cfg.Controller.IntegralLimit = v
		default:
			return 0, fmt.Errorf("optim: unknown parameter %q", name)
		}
	}

	lc, err := cfg.LoopConfig()
	if err != nil {
		return 0, err
	}
	set := metrics.Standard(lc.Channels()[0])
	if _, err := robot.SpeedRun(ctx, cfg, duration, set); err != nil {
		return 0, err
	}
	score, ok := set.Values()[metricName]
	if !ok {
		return 0, fmt.Errorf("optim: unknown metric %q", metricName)
	}
	if math.IsNaN(score) {
		score = math.Inf(1)
	}
	return score, nil
}
