package ahrs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/orientation"
)

const (
	gravity   = 9.81
	magDip    = 60 * Deg
	tolerance = 3e-3 // rad
)

// accelOf is the specific force sensed at rest with roll phi and pitch theta.
func accelOf(phi, theta float64) fixed.Vect3 {
	return fixed.AccelOfRealVect(
		gravity*math.Sin(theta),
		-gravity*math.Sin(phi)*math.Cos(theta),
		-gravity*math.Cos(phi)*math.Cos(theta),
	)
}

// magOf is a unit field with dip magDip pointing north, seen from attitude
// phi, theta, psi.
func magOf(phi, theta, psi float64) fixed.Vect3 {
	r := orientation.FromEulers(phi, theta, psi)
	m := r.Rotate([3]float64{math.Cos(magDip), 0, math.Sin(magDip)})
	return fixed.MagOfRealVect(m[0], m[1], m[2])
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*Pi)
	if d > Pi {
		d -= 2 * Pi
	} else if d < -Pi {
		d += 2 * Pi
	}
	return d
}

func TestTiltRoundTrip(t *testing.T) {
	phis := []float64{0, 0.1, -0.1, 0.5, -0.5, 1.0, -1.0, 0.3}
	thetas := []float64{0, 0.2, -0.2, 0.5, -0.7, 0.9, -1.0, -0.3}

	for _, phi0 := range phis {
		for _, theta0 := range thetas {
			phi, theta := TiltFromAccel(accelOf(phi0, theta0))
			assert.InDelta(t, phi0, phi.Real(), tolerance, "phi at (%.2f, %.2f)", phi0, theta0)
			assert.InDelta(t, theta0, theta.Real(), tolerance, "theta at (%.2f, %.2f)", phi0, theta0)
		}
	}
}

func TestTiltLevel(t *testing.T) {
	phi, theta := TiltFromAccel(fixed.AccelOfRealVect(0, 0, -gravity))
	assert.Equal(t, fixed.HighResAngle(0), phi)
	assert.Equal(t, fixed.HighResAngle(0), theta)
}

func TestHeadingPureNorth(t *testing.T) {
	psi := HeadingFromMag(fixed.MagOfRealVect(1, 0, 0), 0, 0, 0)
	assert.Equal(t, fixed.HighResAngle(0), psi)

	psi = HeadingFromMag(magOf(0, 0, 0), 0, 0, 0)
	assert.InDelta(t, 0, psi.Real(), tolerance)
}

func TestHeadingAzimuthShift(t *testing.T) {
	for deg := -175.0; deg <= 180; deg += 25 {
		az := deg * Deg
		// horizontal components rotated by the azimuth, as seen by a level vehicle yawed by az
		m := fixed.MagOfRealVect(0.5*math.Cos(az), -0.5*math.Sin(az), 0.8)
		psi := HeadingFromMag(m, 0, 0, 0)
		assert.InDelta(t, 0, angleDiff(psi.Real(), az), tolerance, "azimuth %.0f°", deg)
	}
}

func TestHeadingTiltCompensated(t *testing.T) {
	attitudes := [][3]float64{{0.3, 0.2, 1.0}, {-0.5, 0.4, -2.0}, {0.7, -0.6, 3.0}, {0, 0.8, -0.3}}
	for _, a := range attitudes {
		e := fixed.EulersOfReal(a[0], a[1], 0)
		psi := HeadingFromMag(magOf(a[0], a[1], a[2]), e.Phi, e.Theta, 0)
		assert.InDelta(t, 0, angleDiff(psi.Real(), a[2]), tolerance, "attitude %v", a)
	}
}

func TestHeadingOffset(t *testing.T) {
	offset := fixed.AngleOfReal(10 * Deg)
	psi := HeadingFromMag(magOf(0, 0, 0.5), 0, 0, offset)
	assert.InDelta(t, 0.5-10*Deg, psi.Real(), tolerance)

	// offset pushing past -Pi wraps
	psi = HeadingFromMag(magOf(0, 0, -3.1), 0, 0, offset)
	assert.GreaterOrEqual(t, psi, -fixed.HighResPi)
	assert.Less(t, psi, fixed.HighResPi)
	assert.InDelta(t, 0, angleDiff(psi.Real(), -3.1-10*Deg), tolerance)
}
