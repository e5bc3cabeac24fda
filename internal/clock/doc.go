// Package clock provides the timing primitives used by the control loops.
//
//   - [Source]: a monotonic tick counter
//   - [Stopwatch]: elapsed time between successive calls into a function
//
// The first [Stopwatch.Lap] after construction reports zero elapsed time, so
// integrators and differentiators built on top of it contribute nothing on
// their first call instead of dividing by zero.
package clock
