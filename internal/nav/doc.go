// Package nav implements the navigation state machine that walks a path of
// compass headings.
//
// A [Navigator] reacts to three sensor events (driven distance, IR obstacle
// distance, compass direction) and issues drive and turn commands through a
// [motor.Motion]:
//
//	Idle ──facing──▶ Driving ──distance reached──▶ Idle
//	  │                 │
//	  └──not facing──▶ Turning ──facing──▶ Idle
//	                    │
//	Driving ──IR ≤ threshold──▶ Stopped ──Resume──▶ Driving / Idle
//
// Consecutive path steps that share the current heading are merged into one
// drive. Reaching the end of the path with no command outstanding enters
// Done.
//
// Headings are compared along the shorter arc, so 359.8° faces 0°.
//
// All methods are safe for concurrent use. The Motion implementation and
// observers are invoked with the navigator's lock held and must not call
// back into it.
package nav
