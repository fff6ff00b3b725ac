// Package motion implements the velocity-command state machine for a
// differential-drive base: a facade that turns discrete movement requests
// into a fixed-rate stream of twist commands, plus the geometric pattern
// engine that drives it.
package motion

import "math"

// Vector3 defines a standard 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is a 6-DOF instantaneous velocity command, matching
// geometry_msgs/Twist. Values are immutable; a new Twist is constructed for
// every change.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// NewTwist builds a sanitized twist from the six components.
func NewTwist(lx, ly, lz, ax, ay, az float64) Twist {
	return Twist{
		Linear:  Vector3{X: finite(lx), Y: finite(ly), Z: finite(lz)},
		Angular: Vector3{X: finite(ax), Y: finite(ay), Z: finite(az)},
	}
}

// ZeroTwist returns the all-zero stop command.
func ZeroTwist() Twist {
	return Twist{}
}

// IsZero reports whether every component is exactly zero.
func (t Twist) IsZero() bool {
	return t.Linear == Vector3{} && t.Angular == Vector3{}
}

// Sanitize returns a copy with any non-finite component replaced by 0.0.
func (t Twist) Sanitize() Twist {
	return NewTwist(
		t.Linear.X, t.Linear.Y, t.Linear.Z,
		t.Angular.X, t.Angular.Y, t.Angular.Z,
	)
}

// finite maps NaN and infinities to 0.0 so a malformed input can never
// propagate into the command stream.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Coerce resolves a numeric command input: non-finite or zero values fall
// back to the documented default for that parameter.
func Coerce(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return fallback
	}
	return v
}
