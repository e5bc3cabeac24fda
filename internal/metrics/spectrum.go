package metrics

import (
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/motionctl/internal/control"
)

// Oscillation is the dominant frequency, in Hz, of the measured RPM over
// the last window samples. It reads 0 until the window is full or when no
// component stands out above minAmplitude RPM.
type Oscillation struct {
	window       int
	minAmplitude float64

	rpm    []float64
	period time.Duration
	last   time.Duration
}

const DefaultOscillationWindow = 64

func NewOscillation() *Oscillation {
	return &Oscillation{window: DefaultOscillationWindow, minAmplitude: 0.5}
}

func (o *Oscillation) Name() string { return "oscillation_hz" }

func (o *Oscillation) Observe(s control.Sample) {
	if len(o.rpm) > 0 && s.Time > o.last {
		o.period = s.Time - o.last
	}
	o.last = s.Time
	o.rpm = append(o.rpm, s.RPM)
	if len(o.rpm) > o.window {
		o.rpm = o.rpm[len(o.rpm)-o.window:]
	}
}

func (o *Oscillation) Value() float64 {
	if len(o.rpm) < o.window || o.period <= 0 {
		return 0
	}
	mean := stat.Mean(o.rpm, nil)
	seq := make([]float64, len(o.rpm))
	for i, v := range o.rpm {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(len(seq))
	coeff := fft.Coefficients(nil, seq)

	best, bestAmp := 0, 0.0
	for i := 1; i < len(coeff); i++ {
		if amp := cmplx.Abs(coeff[i]); amp > bestAmp {
			best, bestAmp = i, amp
		}
	}
	// single-sided amplitude of a real sinusoid
	if 2*bestAmp/float64(len(seq)) < o.minAmplitude {
		return 0
	}
	return fft.Freq(best) / o.period.Seconds()
}

func (o *Oscillation) Reset() {
	o.rpm = o.rpm[:0]
	o.period = 0
	o.last = 0
}
