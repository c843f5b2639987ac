// Package lift implements the per-lift motion controller.
//
// Each of the facility's vertical lift units gets one Controller driving
// its axis with a trapezoidal speed profile: accelerate at a fixed rate,
// cruise (full speed for long travels, half otherwise), start braking
// when the remaining distance reaches v²/(2·decel), floor the command at
// the minimum positioning speed, and finish with a low-speed fine
// positioning pass inside ±20 mm, accepting ±5 mm or the fine timeout.
//
// The controller is purely cycle-driven: MoveTo only records the target,
// and every subsequent Step advances the profile by one control period.
// A false safety verdict zeroes the speed output within the same period,
// regardless of phase. Faults auto-recover up to a bounded retry budget
// with backoff, then hold for an external Reset.
package lift
