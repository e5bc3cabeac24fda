// Package control provides per-motor speed regulation.
//
//   - [Bank]: one PID state per motor channel, computing a power delta
//     from target and measured RPM in any [Variant] (P, PI, PD, PID)
//   - [SpeedLoop]: the periodic activity that samples rotation counts,
//     converts them to RPM and drives motor power through a [Bank]
//
// # Usage
//
//	bank := control.NewBank(control.Gains{Kp: 0.6, Ki: 0.1}, clock.NewSystem())
//	delta := bank.Compute(motor.ChannelA, control.PI, 35, rpm)
//
// Integral and derivative terms are normalised by the time elapsed since the
// channel's previous call; on the first call that time is zero and both
// terms contribute nothing.
//
// Calls for different channels may run concurrently. Each channel's state is
// guarded by its own lock.
package control
