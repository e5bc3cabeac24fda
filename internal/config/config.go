package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/integrators"
	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/rover"
)

const (
	DefaultKp        = 0.6
	DefaultKi        = 0.1
	DefaultKd        = 0.0
	DefaultPeriodMS  = 300
	DefaultBasePower = 20
	DefaultTargetRPM = 35.0
	DefaultDtMS      = 10
	DefaultDuration  = 60.0
	DefaultWheelMM   = 340.0
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Controller     ControllerConfig `yaml:"controller"`
	SpeedLoop      SpeedLoopConfig  `yaml:"speed_loop"`
	Navigation     NavigationConfig `yaml:"navigation"`
	Rover          RoverConfig      `yaml:"rover"`
	Simulation     SimulationConfig `yaml:"simulation"`
	Path           []float64        `yaml:"path"`
	InitialHeading float64          `yaml:"initial_heading"`
}

type ControllerConfig struct {
	Variant       string  `yaml:"variant"`
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	IntegralLimit float64 `yaml:"integral_limit"`
}

type SpeedLoopConfig struct {
	PeriodMS  int `yaml:"period_ms"`
	BasePower int `yaml:"base_power"`
	// Targets maps channel names ("A", "B", "C") to target RPM.
	Targets map[string]float64 `yaml:"targets"`
}

type NavigationConfig struct {
	SquareMM          int     `yaml:"square_mm"`
	HeadingEpsilon    float64 `yaml:"heading_epsilon"`
	DistanceTolerance int     `yaml:"distance_tolerance"`
	ObstacleThreshold int     `yaml:"obstacle_threshold"`
	MaxCorrections    int     `yaml:"max_corrections"`
}

type RoverConfig struct {
	DriveSpeed    float64 `yaml:"drive_speed"`
	TurnRate      float64 `yaml:"turn_rate"`
	TurnLag       float64 `yaml:"turn_lag"`
	ObstacleAt    float64 `yaml:"obstacle_at"`
	RPMPerPercent float64 `yaml:"rpm_per_percent"`
	TimeConstant  float64 `yaml:"time_constant"`
	Friction      float64 `yaml:"friction"`
	// WheelMM is the drive wheel circumference. When positive the rover's
	// forward speed follows the simulated motor on channel A; otherwise it
	// drives at DriveSpeed.
	WheelMM       float64 `yaml:"wheel_mm"`
}

type SimulationConfig struct {
	DtMS       int     `yaml:"dt_ms"`
	Duration   float64 `yaml:"duration"`
	Integrator string  `yaml:"integrator"`
}

func DefaultConfig() *Config {
	nc := nav.DefaultConfig()
	rc := rover.DefaultConfig()
	pc := rover.DefaultPlantConfig()
	return &Config{
		Controller: ControllerConfig{
			Variant: control.PID.String(),
			Kp:      DefaultKp,
			Ki:      DefaultKi,
			Kd:      DefaultKd,
		},
		SpeedLoop: SpeedLoopConfig{
			PeriodMS:  DefaultPeriodMS,
			BasePower: DefaultBasePower,
			Targets:   map[string]float64{"A": DefaultTargetRPM},
		},
		Navigation: NavigationConfig{
			SquareMM:          nc.SquareMM,
			HeadingEpsilon:    nc.HeadingEpsilon,
			DistanceTolerance: nc.DistanceTolerance,
			ObstacleThreshold: nc.ObstacleThreshold,
			MaxCorrections:    nc.MaxCorrections,
		},
		Rover: RoverConfig{
			DriveSpeed:    rc.DriveSpeed,
			TurnRate:      rc.TurnRate,
			RPMPerPercent: pc.RPMPerPercent,
			TimeConstant:  pc.TimeConstant,
			Friction:      pc.Friction,
			WheelMM:       DefaultWheelMM,
		},
		Simulation: SimulationConfig{
			DtMS:       DefaultDtMS,
			Duration:   DefaultDuration,
			Integrator: "rk4",
		},
		Path: []float64{0, 0, 90, 180, 180, 270},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// yaml merges into a non-nil map; targets in the file replace the defaults.
	defaults := cfg.SpeedLoop.Targets
	cfg.SpeedLoop.Targets = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.SpeedLoop.Targets == nil {
		cfg.SpeedLoop.Targets = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.SpeedLoop.Targets = make(map[string]float64, len(c.SpeedLoop.Targets))
	for k, v := range c.SpeedLoop.Targets {
		out.SpeedLoop.Targets[k] = v
	}
	out.Path = append([]float64(nil), c.Path...)
	return &out
}

func (c *Config) Validate() error {
	if _, err := c.LoopConfig(); err != nil {
		return err
	}
	if err := c.NavConfig().Validate(); err != nil {
		return err
	}
	if err := c.RoverConfig().Validate(); err != nil {
		return err
	}
	if c.Rover.TimeConstant <= 0 {
		return fmt.Errorf("%w: rover time constant must be positive", ErrInvalid)
	}
	if c.Rover.WheelMM < 0 {
		return fmt.Errorf("%w: wheel circumference must not be negative", ErrInvalid)
	}
	if c.Simulation.DtMS <= 0 || c.Simulation.Duration <= 0 {
		return fmt.Errorf("%w: simulation step and duration must be positive", ErrInvalid)
	}
	if _, ok := integrators.Get(c.Simulation.Integrator); !ok {
		return fmt.Errorf("%w: unknown integrator %q", ErrInvalid, c.Simulation.Integrator)
	}
	if err := nav.Path(c.Path).Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Gains() control.Gains {
	return control.Gains{
		Kp:            c.Controller.Kp,
		Ki:            c.Controller.Ki,
		Kd:            c.Controller.Kd,
		IntegralLimit: c.Controller.IntegralLimit,
	}
}

func (c *Config) LoopConfig() (control.LoopConfig, error) {
	v, err := control.ParseVariant(c.Controller.Variant)
	if err != nil {
		return control.LoopConfig{}, err
	}
	lc := control.LoopConfig{
		Period:    time.Duration(c.SpeedLoop.PeriodMS) * time.Millisecond,
		BasePower: c.SpeedLoop.BasePower,
		Variant:   v,
		Targets:   make(map[motor.Channel]float64, len(c.SpeedLoop.Targets)),
	}
	for name, rpm := range c.SpeedLoop.Targets {
		ch, err := motor.ParseChannel(name)
		if err != nil {
			return control.LoopConfig{}, err
		}
		lc.Targets[ch] = rpm
	}
	return lc, lc.Validate()
}

func (c *Config) NavConfig() nav.Config {
	return nav.Config{
		SquareMM:          c.Navigation.SquareMM,
		HeadingEpsilon:    c.Navigation.HeadingEpsilon,
		DistanceTolerance: c.Navigation.DistanceTolerance,
		ObstacleThreshold: c.Navigation.ObstacleThreshold,
		MaxCorrections:    c.Navigation.MaxCorrections,
	}
}

func (c *Config) RoverConfig() rover.Config {
	return rover.Config{
		DriveSpeed: c.Rover.DriveSpeed,
		TurnRate:   c.Rover.TurnRate,
		TurnLag:    c.Rover.TurnLag,
		ObstacleAt: c.Rover.ObstacleAt,
	}
}

func (c *Config) PlantConfig() rover.PlantConfig {
	return rover.PlantConfig{
		RPMPerPercent: c.Rover.RPMPerPercent,
		TimeConstant:  c.Rover.TimeConstant,
		Friction:      c.Rover.Friction,
	}
}

func (c *Config) Dt() time.Duration {
	return time.Duration(c.Simulation.DtMS) * time.Millisecond
}
