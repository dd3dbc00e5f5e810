package fixed

import (
	"math"

	"golang.org/x/exp/constraints"
)

// sinTable holds sin over [0, Pi/2] at every Angle quantum, TrigFrac bits.
var sinTable [AnglePi2 + 1]int16

func init() {
	for i := range sinTable {
		sinTable[i] = int16(math.Round(math.Sin(Angle(i).Real()) * float64(TrigOne)))
	}
}

// Sin returns sin(a) with TrigFrac fractional bits.
func Sin(a Angle) int32 {
	a = NormalizeAngle(a)
	neg := a < 0
	if neg {
		a = -a
	}
	if a > AnglePi2 {
		a = AnglePi - a
	}
	s := int32(sinTable[a])
	if neg {
		return -s
	}
	return s
}

// Cos returns cos(a) with TrigFrac fractional bits.
func Cos(a Angle) int32 {
	return Sin(Angle(wrap(int64(a)+int64(AnglePi2), int64(AnglePi))))
}

// atan polynomial coefficients, 16 fractional bits, valid for z in [0, 1].
// Max error about 1e-5 rad.
const (
	atanFrac = 16
	atanC1   = 65527
	atanC3   = -21647
	atanC5   = 11806
	atanC7   = -5579
	atanC9   = 1365

	atanPi  = 205887 // Pi, atanFrac bits
	atanPi2 = 102944 // Pi/2, atanFrac bits
)

func atanUnit(z int64) int64 {
	z2 := (z * z) >> atanFrac
	p := int64(atanC9)
	p = atanC7 + (p*z2)>>atanFrac
	p = atanC5 + (p*z2)>>atanFrac
	p = atanC3 + (p*z2)>>atanFrac
	p = atanC1 + (p*z2)>>atanFrac
	return (p * z) >> atanFrac
}

// Atan2 returns the angle of the vector (x, y) in [-AnglePi, AnglePi].
// Inputs can be of any signed width and resolution as long as x and y share
// one. Atan2(0, 0) is 0.
func Atan2[T constraints.Signed](y, x T) Angle {
	if x == 0 && y == 0 {
		return 0
	}
	ax, ay := int64(x), int64(y)
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}

	var a int64
	if ay > ax {
		a = atanPi2 - atanUnit((ax<<atanFrac)/ay)
	} else {
		a = atanUnit((ay << atanFrac) / ax)
	}
	if x < 0 {
		a = atanPi - a
	}
	if y < 0 {
		a = -a
	}

	// round to the Angle quantum
	const shift = atanFrac - AngleFrac
	if a >= 0 {
		return Angle((a + 1<<(shift-1)) >> shift)
	}
	return -Angle((-a + 1<<(shift-1)) >> shift)
}
