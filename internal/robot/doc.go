// Package robot assembles the motion-control core: the speed loop, the
// event dispatcher and the navigator, fed by one sensor board.
//
// Robot runs the parts as goroutines against the wall clock. Simulation
// drives the same parts deterministically against a simulated rover on a
// manual clock, one fixed step at a time.
package robot
