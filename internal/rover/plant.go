package rover

import (
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/motionctl/internal/integrators"
	"github.com/san-kum/motionctl/internal/motor"
)

// PlantConfig describes one DC motor: steady-state speed per percent of
// power and the mechanical time constant.
type PlantConfig struct {
	// RPMPerPercent is the no-load speed gain.
	RPMPerPercent float64
	// TimeConstant in seconds.
	TimeConstant float64
	// Friction is subtracted from the power magnitude before it turns the
	// shaft, in percent.
	Friction float64
}

func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		RPMPerPercent: 1.5,
		TimeConstant:  0.25,
		Friction:      5,
	}
}

// motorModel is x = [speed deg/s, angle deg], u = [effective power %].
type motorModel struct {
	cfg PlantConfig
}

func (m motorModel) Derive(x integrators.State, u integrators.Input, t float64) integrators.State {
	target := u[0] * m.cfg.RPMPerPercent * 360 / 60
	return integrators.State{
		(target - x[0]) / m.cfg.TimeConstant,
		x[0],
	}
}

// Plant simulates one motor per channel and implements motor.Power.
type Plant struct {
	model motorModel
	integ integrators.Integrator

	mu     sync.Mutex
	power  [motor.NumChannels]int
	states [motor.NumChannels]integrators.State
	t      float64
}

func NewPlant(cfg PlantConfig, integ integrators.Integrator) (*Plant, error) {
	if cfg.TimeConstant <= 0 {
		return nil, fmt.Errorf("rover: motor time constant must be positive, got %v", cfg.TimeConstant)
	}
	if integ == nil {
		integ = integrators.NewRK4()
	}
	p := &Plant{model: motorModel{cfg: cfg}, integ: integ}
	for i := range p.states {
		p.states[i] = integrators.State{0, 0}
	}
	return p, nil
}

func (p *Plant) SetPower(ch motor.Channel, percent int) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %v", motor.ErrUnknownChannel, ch)
	}
	p.mu.Lock()
	p.power[ch] = motor.ClampPower(percent)
	p.mu.Unlock()
	return nil
}

func (p *Plant) Power(ch motor.Channel) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.power[ch]
}

func (p *Plant) RotationCount(ch motor.Channel) (int64, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %v", motor.ErrUnknownChannel, ch)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(math.Floor(p.states[ch][1])), nil
}

// RPM is the instantaneous simulated shaft speed.
func (p *Plant) RPM(ch motor.Channel) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[ch][0] * 60 / 360
}

func (p *Plant) effective(power int) float64 {
	f := p.model.cfg.Friction
	v := float64(power)
	switch {
	case v > f:
		return v - f
	case v < -f:
		return v + f
	}
	return 0
}

// Step advances every motor by dt seconds.
func (p *Plant) Step(dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.states {
		u := integrators.Input{p.effective(p.power[i])}
		p.states[i] = p.integ.Step(p.model, p.states[i], u, p.t, dt)
	}
	p.t += dt
}

var _ motor.Power = (*Plant)(nil)
