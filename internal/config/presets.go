package config

import "sort"

// Presets are named traversal scenarios for the simulated rover.
var Presets = map[string]*Config{
	"square": withPath(DefaultConfig(), []float64{0, 0, 90, 90, 180, 180, 270, 270}),
	"corridor": func() *Config {
		c := withPath(DefaultConfig(), []float64{0, 0, 0, 0, 0, 0})
		c.Rover.ObstacleAt = 1100
		return c
	}(),
	"zigzag": withPath(DefaultConfig(), []float64{45, 315, 45, 315, 45, 315}),
	"wrap": func() *Config {
		c := withPath(DefaultConfig(), []float64{350, 10, 350, 10})
		c.InitialHeading = 0
		return c
	}(),
	"sluggish": func() *Config {
		c := withPath(DefaultConfig(), []float64{0, 90, 180, 270})
		c.Rover.TurnRate = 200
		c.Rover.TurnLag = 4
		c.Rover.TimeConstant = 0.8
		c.Navigation.HeadingEpsilon = 1
		return c
	}(),
	"dual": func() *Config {
		c := withPath(DefaultConfig(), []float64{0, 0, 180, 180})
		c.SpeedLoop.Targets = map[string]float64{"A": 35, "B": 35}
		return c
	}(),
}

func withPath(c *Config, path []float64) *Config {
	c.Path = path
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	c, ok := Presets[name]
	if !ok {
		return nil
	}
	return c.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
