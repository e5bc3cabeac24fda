package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/motionctl/internal/control"
)

// TrackingError is the RMS difference between target and measured RPM.
type TrackingError struct {
	sq []float64
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (m *TrackingError) Name() string { return "tracking_rms" }

func (m *TrackingError) Observe(s control.Sample) {
	e := s.TargetRPM - s.RPM
	m.sq = append(m.sq, e*e)
}

func (m *TrackingError) Value() float64 {
	if len(m.sq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(m.sq, nil))
}

func (m *TrackingError) Reset() { m.sq = m.sq[:0] }

// ControlEffort is the mean absolute power command.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s control.Sample) {
	c.sum += math.Abs(float64(s.Power))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Overshoot is the largest excursion past the target, as a fraction of
// the target.
type Overshoot struct {
	max float64
}

func NewOvershoot() *Overshoot { return &Overshoot{} }

func (o *Overshoot) Name() string { return "overshoot" }

func (o *Overshoot) Observe(s control.Sample) {
	if s.TargetRPM == 0 {
		return
	}
	over := (s.RPM - s.TargetRPM) / math.Abs(s.TargetRPM)
	if s.TargetRPM < 0 {
		over = -over
	}
	o.max = math.Max(o.max, over)
}

func (o *Overshoot) Value() float64 { return o.max }

func (o *Overshoot) Reset() { o.max = 0 }

// SettlingTime is the sample time after which the speed stayed within band
// (a fraction of the target). It is -1 while the speed is outside the band.
type SettlingTime struct {
	band    float64
	settled time.Duration
	inBand  bool
}

func NewSettlingTime(band float64) *SettlingTime {
	return &SettlingTime{band: band}
}

func (m *SettlingTime) Name() string { return "settling_s" }

func (m *SettlingTime) Observe(s control.Sample) {
	within := math.Abs(s.RPM-s.TargetRPM) <= m.band*math.Abs(s.TargetRPM)
	switch {
	case within && !m.inBand:
		m.inBand = true
		m.settled = s.Time
	case !within:
		m.inBand = false
	}
}

func (m *SettlingTime) Value() float64 {
	if !m.inBand {
		return -1
	}
	return m.settled.Seconds()
}

func (m *SettlingTime) Reset() {
	m.inBand = false
	m.settled = 0
}

// Ripple is the standard deviation of the measured RPM over the most recent
// window of samples.
type Ripple struct {
	window int
	rpm    []float64
}

const DefaultRippleWindow = 20

func NewRipple() *Ripple { return &Ripple{window: DefaultRippleWindow} }

func (r *Ripple) Name() string { return "ripple" }

func (r *Ripple) Observe(s control.Sample) {
	r.rpm = append(r.rpm, s.RPM)
	if len(r.rpm) > r.window {
		r.rpm = r.rpm[len(r.rpm)-r.window:]
	}
}

func (r *Ripple) Value() float64 {
	if len(r.rpm) < 2 {
		return 0
	}
	return stat.StdDev(r.rpm, nil)
}

func (r *Ripple) Reset() { r.rpm = r.rpm[:0] }
