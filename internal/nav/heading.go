package nav

import (
	"math"

	"github.com/san-kum/motionctl/internal/motor"
)

// Normalize maps a heading of any magnitude into [0, 360).
func Normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// Delta is the shortest signed angle from one heading to another, in
// (-180, 180]. Positive means to is clockwise of from.
func Delta(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// Within reports whether two headings are at most epsilon apart, measured
// along the shorter arc.
func Within(a, b, epsilon float64) bool {
	return math.Abs(Delta(a, b)) <= epsilon
}

// RotationToward picks the turn sense that reaches to along the shorter
// arc. A target exactly opposite turns right.
func RotationToward(from, to float64) motor.Rotation {
	if Delta(from, to) < 0 {
		return motor.Left
	}
	return motor.Right
}
