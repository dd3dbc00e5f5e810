// Package fixed provides the fixed-point angle, rate and vector algebra used by
// the attitude filter, along with table sine/cosine and an integer atan2.
//
// Every quantity carries its binary point in its type: an Angle has AngleFrac
// fractional bits, a HighResAngle has HighResFrac, so converting between the
// two is always an explicit call rather than a shift by convention.
package fixed

import "math"

const (
	AngleFrac   = 12 // Angle: radians with 12 fractional bits
	HighResFrac = 18 // HighResAngle: radians with 18 fractional bits
	RateFrac    = 12 // Rate: rad/s with 12 fractional bits
	TrigFrac    = 14 // results of Sin and Cos
	AccelFrac   = 10 // accelerometer vectors, m/s²
	MagFrac     = 11 // magnetometer vectors, normalised field

	highResShift = HighResFrac - AngleFrac
)

const (
	AnglePi    Angle = 12868 // round(Pi * 2^12)
	AnglePi2   Angle = AnglePi / 2
	AngleTwoPi Angle = 2 * AnglePi

	HighResPi    HighResAngle = HighResAngle(AnglePi) << highResShift
	HighResTwoPi HighResAngle = 2 * HighResPi

	TrigOne int32 = 1 << TrigFrac
)

// Angle is an angle in radians with AngleFrac fractional bits.
type Angle int32

// HighResAngle is an angle in radians with HighResFrac fractional bits, used
// for the running estimate so integration error stays below the output quantum.
type HighResAngle int32

// Rate is an angular rate in rad/s with RateFrac fractional bits.
type Rate int32

// HighRes promotes a to high resolution.
func (a Angle) HighRes() HighResAngle {
	return HighResAngle(a) << highResShift
}

// Angle truncates a to normal resolution (arithmetic shift, rounds towards -inf).
func (a HighResAngle) Angle() Angle {
	return Angle(a >> highResShift)
}

// Eulers holds roll (Phi), pitch (Theta) and yaw (Psi).
type Eulers struct {
	Phi, Theta, Psi Angle
}

// HighResEulers is Eulers at high resolution.
type HighResEulers struct {
	Phi, Theta, Psi HighResAngle
}

// Rates holds body angular rates about x (P), y (Q) and z (R).
type Rates struct {
	P, Q, R Rate
}

// Vect3 is a raw fixed-point 3-vector; its resolution depends on the sensor
// (AccelFrac or MagFrac).
type Vect3 struct {
	X, Y, Z int32
}

func (e Eulers) HighRes() HighResEulers {
	return HighResEulers{e.Phi.HighRes(), e.Theta.HighRes(), e.Psi.HighRes()}
}

func (e HighResEulers) Eulers() Eulers {
	return Eulers{e.Phi.Angle(), e.Theta.Angle(), e.Psi.Angle()}
}

func (e HighResEulers) Add(o HighResEulers) HighResEulers {
	return HighResEulers{e.Phi + o.Phi, e.Theta + o.Theta, e.Psi + o.Psi}
}

func (e HighResEulers) Sub(o HighResEulers) HighResEulers {
	return HighResEulers{e.Phi - o.Phi, e.Theta - o.Theta, e.Psi - o.Psi}
}

// Div divides each component by d, truncating towards zero.
func (e HighResEulers) Div(d int32) HighResEulers {
	dd := HighResAngle(d)
	return HighResEulers{e.Phi / dd, e.Theta / dd, e.Psi / dd}
}

func (r Rates) Add(o Rates) Rates {
	return Rates{r.P + o.P, r.Q + o.Q, r.R + o.R}
}

func (r Rates) Sub(o Rates) Rates {
	return Rates{r.P - o.P, r.Q - o.Q, r.R - o.R}
}

func (v Vect3) Sub(o Vect3) Vect3 {
	return Vect3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Norm returns the Euclidean length of v in v's own resolution.
func (v Vect3) Norm() int32 {
	x, y, z := int64(v.X), int64(v.Y), int64(v.Z)
	return int32(math.Sqrt(float64(x*x + y*y + z*z)))
}

// Array returns the components of r as a slice-friendly array.
func (r Rates) Array() [3]int32 {
	return [3]int32{int32(r.P), int32(r.Q), int32(r.R)}
}

// RatesOfArray is the inverse of Rates.Array.
func RatesOfArray(a [3]int32) Rates {
	return Rates{Rate(a[0]), Rate(a[1]), Rate(a[2])}
}

func (v Vect3) Array() [3]int32 {
	return [3]int32{v.X, v.Y, v.Z}
}

func Vect3OfArray(a [3]int32) Vect3 {
	return Vect3{a[0], a[1], a[2]}
}

func bfp(x float64, frac uint) int32 {
	return int32(math.Round(x * float64(int64(1)<<frac)))
}

func toReal(x int32, frac uint) float64 {
	return float64(x) / float64(int64(1)<<frac)
}

// AngleOfReal converts radians to an Angle.
func AngleOfReal(rad float64) Angle { return Angle(bfp(rad, AngleFrac)) }

// HighResOfReal converts radians to a HighResAngle.
func HighResOfReal(rad float64) HighResAngle { return HighResAngle(bfp(rad, HighResFrac)) }

// RateOfReal converts rad/s to a Rate.
func RateOfReal(radps float64) Rate { return Rate(bfp(radps, RateFrac)) }

// AccelOfReal converts m/s² to accelerometer resolution.
func AccelOfReal(mps2 float64) int32 { return bfp(mps2, AccelFrac) }

// MagOfReal converts a normalised field component to magnetometer resolution.
func MagOfReal(m float64) int32 { return bfp(m, MagFrac) }

func (a Angle) Real() float64        { return toReal(int32(a), AngleFrac) }
func (a HighResAngle) Real() float64 { return toReal(int32(a), HighResFrac) }
func (r Rate) Real() float64         { return toReal(int32(r), RateFrac) }

// RealOfAccel converts an accelerometer component back to m/s².
func RealOfAccel(a int32) float64 { return toReal(a, AccelFrac) }

// RealOfMag converts a magnetometer component back to field units.
func RealOfMag(m int32) float64 { return toReal(m, MagFrac) }

// RatesOfReal builds Rates from rad/s components.
func RatesOfReal(p, q, r float64) Rates {
	return Rates{RateOfReal(p), RateOfReal(q), RateOfReal(r)}
}

// AccelOfRealVect builds an accelerometer Vect3 from m/s² components.
func AccelOfRealVect(x, y, z float64) Vect3 {
	return Vect3{AccelOfReal(x), AccelOfReal(y), AccelOfReal(z)}
}

// MagOfRealVect builds a magnetometer Vect3 from field components.
func MagOfRealVect(x, y, z float64) Vect3 {
	return Vect3{MagOfReal(x), MagOfReal(y), MagOfReal(z)}
}

// EulersOfReal builds Eulers from radians.
func EulersOfReal(phi, theta, psi float64) Eulers {
	return Eulers{AngleOfReal(phi), AngleOfReal(theta), AngleOfReal(psi)}
}

// Real returns phi, theta, psi in radians.
func (e Eulers) Real() (phi, theta, psi float64) {
	return e.Phi.Real(), e.Theta.Real(), e.Psi.Real()
}
