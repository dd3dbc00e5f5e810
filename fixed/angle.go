package fixed

import "golang.org/x/exp/constraints"

// wrap maps a into [-pi, pi) for any signed fixed-point angle. The arithmetic
// is done in 64 bits so that a + pi cannot overflow, which keeps the result
// defined for every representable input.
func wrap[T constraints.Signed](a, pi T) T {
	twoPi := 2 * int64(pi)
	r := (int64(a) + int64(pi)) % twoPi
	if r < 0 {
		r += twoPi
	}
	return T(r - int64(pi))
}

// NormalizeAngle maps a into [-AnglePi, AnglePi).
func NormalizeAngle(a Angle) Angle {
	return wrap(a, AnglePi)
}

// NormalizeHighRes maps a into [-HighResPi, HighResPi).
func NormalizeHighRes(a HighResAngle) HighResAngle {
	return wrap(a, HighResPi)
}

// Normalize returns a with its angle wrapped into [-AnglePi, AnglePi).
func (a Angle) Normalize() Angle { return NormalizeAngle(a) }

// Normalize returns a with its angle wrapped into [-HighResPi, HighResPi).
func (a HighResAngle) Normalize() HighResAngle { return NormalizeHighRes(a) }

// ShortestArc returns to-from wrapped into the canonical interval, i.e. the
// signed rotation that takes from onto to.
func ShortestArc(from, to HighResAngle) HighResAngle {
	return HighResAngle(wrap(int64(to)-int64(from), int64(HighResPi)))
}
