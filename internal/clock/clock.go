package clock

import (
	"sync"
	"time"
)

// Source is a monotonic tick counter. The absolute value carries no meaning;
// only differences between two readings do.
type Source interface {
	Now() time.Duration
}

type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Now() time.Duration {
	return time.Since(s.start)
}

// Manual is a Source advanced explicitly by the caller. It is used by the
// simulated rover and by tests that need deterministic intervals.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

func (m *Manual) Set(d time.Duration) {
	m.mu.Lock()
	m.now = d
	m.mu.Unlock()
}

// Stopwatch is not safe for concurrent use; owners serialise calls.
type Stopwatch struct {
	src     Source
	last    time.Duration
	started bool
}

func NewStopwatch(src Source) *Stopwatch {
	return &Stopwatch{src: src}
}

// Lap returns the time since the previous Lap and restarts the interval.
func (w *Stopwatch) Lap() time.Duration {
	now := w.src.Now()
	if !w.started {
		w.started = true
		w.last = now
		return 0
	}
	elapsed := now - w.last
	w.last = now
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Reset makes the next Lap behave like the first one.
func (w *Stopwatch) Reset() {
	w.started = false
	w.last = 0
}
