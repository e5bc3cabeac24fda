// Package automation runs scripted batches of simulated traversals.
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/robot"
)

var ErrUnknownPreset = errors.New("automation: unknown preset")

// Scenario is a named list of runs, loaded from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Runs        []Run  `yaml:"runs"`
}

// Run is one traversal. It starts from Preset (or the defaults) and applies
// whichever overrides are set.
type Run struct {
	Name           string    `yaml:"name"`
	Preset         string    `yaml:"preset"`
	Path           []float64 `yaml:"path"`
	InitialHeading *float64  `yaml:"initial_heading"`
	ObstacleAt     *float64  `yaml:"obstacle_at"`
	Variant        string    `yaml:"variant"`
	ResumeAfterMS  int       `yaml:"resume_after_ms"`
	// Expect is the required outcome: "done", "stopped", "obstacle" or
	// "turn_timeout". Empty accepts anything.
	Expect string `yaml:"expect"`
}

// Outcome is the result of one run.
type Outcome struct {
	Name   string
	Result *robot.Result
	Passed bool
	Reason string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &scenario, nil
}

// Config builds the configuration for r.
func (r Run) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, r.Preset)
		}
	}
	if r.Path != nil {
		cfg.Path = r.Path
	}
	if r.InitialHeading != nil {
		cfg.InitialHeading = *r.InitialHeading
	}
	if r.ObstacleAt != nil {
		cfg.Rover.ObstacleAt = *r.ObstacleAt
	}
	if r.Variant != "" {
		cfg.Controller.Variant = r.Variant
	}
	return cfg, cfg.Validate()
}

func (r Run) check(res *robot.Result) (bool, string) {
	switch r.Expect {
	case "":
		return true, ""
	case "done":
		if res.Outcome == nav.Done {
			return true, ""
		}
	case "stopped":
		if res.Outcome == nav.Stopped {
			return true, ""
		}
	case "obstacle":
		if res.Outcome == nav.Stopped && res.StopCause.Has(nav.StopObstacle) {
			return true, ""
		}
	case "turn_timeout":
		if res.Outcome == nav.Stopped && res.StopCause.Has(nav.StopTurnTimeout) {
			return true, ""
		}
	default:
		return false, fmt.Sprintf("unknown expectation %q", r.Expect)
	}
	return false, fmt.Sprintf("expected %s, got %s (%s)", r.Expect, res.Outcome, res.StopCause)
}

// RunScenario executes every run in order.
func RunScenario(ctx context.Context, scenario *Scenario, logger *log.Logger) ([]Outcome, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	outcomes := make([]Outcome, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("run-%d", i+1)
		}
		logger.Printf("running %d/%d: %s", i+1, len(scenario.Runs), name)

		cfg, err := run.Config()
		if err != nil {
			return outcomes, fmt.Errorf("run %s: %w", name, err)
		}
		var opts []robot.Option
		if run.ResumeAfterMS > 0 {
			opts = append(opts, robot.WithResumeAfter(time.Duration(run.ResumeAfterMS)*time.Millisecond))
		}
		s, err := robot.NewSimulation(cfg, opts...)
		if err != nil {
			return outcomes, fmt.Errorf("run %s: %w", name, err)
		}
		res, err := s.Run(ctx)
		if err != nil {
			return outcomes, fmt.Errorf("run %s: %w", name, err)
		}

		passed, reason := run.check(res)
		outcomes = append(outcomes, Outcome{Name: name, Result: res, Passed: passed, Reason: reason})
	}
	return outcomes, nil
}
