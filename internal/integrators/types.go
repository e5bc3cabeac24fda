// Package integrators provides fixed-step ODE steppers for the plant models
// used by the simulated rover.
package integrators

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Input is the control input held constant across one step.
type Input []float64

// System is an ODE dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Input, t float64) State
}

type Integrator interface {
	Step(sys System, x State, u Input, t, dt float64) State
}

// Get returns a stepper by name.
func Get(name string) (Integrator, bool) {
	switch name {
	case "euler":
		return NewEuler(), true
	case "rk4", "":
		return NewRK4(), true
	}
	return nil, false
}
