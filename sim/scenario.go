// Package sim flies the attitude filter through synthetic scenarios.
//
// A Scenario defines the true attitude as a piecewise-linear timeline. The
// sensors that a vehicle following it would see are synthesised with noise
// and bias, fed to an ahrs.Provider at fixed rates, and the estimate is
// compared against the truth.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/westphae/quaternion"

	"github.com/yin1008/paparazzi/orientation"
)

const (
	pi  = math.Pi
	G   = 9.81 // m/s²
	deg = pi / 180
)

var ErrOutsideScenario = errors.New("sim: requested time is outside of scenario")

// Scenario defines a flight by piecewise-linear interpolation of the attitude.
type Scenario struct {
	Name            string
	t               []float64 // s
	phi, theta, psi []float64 // rad [roll R/L, pitch U/D, heading N->E->S->W]
	mag             [3]float64
}

// NewScenario checks and builds a scenario from matching time and attitude
// slices. Times must be strictly increasing; psi may run past ±Pi to describe
// more than one turn.
func NewScenario(name string, t, phi, theta, psi []float64) (*Scenario, error) {
	n := len(t)
	if n < 2 {
		return nil, fmt.Errorf("sim: scenario %s needs at least two points, has %d", name, n)
	}
	if len(phi) != n || len(theta) != n || len(psi) != n {
		return nil, fmt.Errorf("sim: scenario %s has %d times but %d/%d/%d angles",
			name, n, len(phi), len(theta), len(psi))
	}
	for i := 1; i < n; i++ {
		if t[i] <= t[i-1] {
			return nil, fmt.Errorf("sim: scenario %s time not increasing at index %d", name, i)
		}
	}
	return &Scenario{Name: name, t: t, phi: phi, theta: theta, psi: psi, mag: defaultMagField}, nil
}

// unit earth magnetic field in NED with 60° dip, roughly mid-latitude
var defaultMagField = [3]float64{math.Cos(60 * deg), 0, math.Sin(60 * deg)}

// SetMagField overrides the earth magnetic field (NED).
func (s *Scenario) SetMagField(n, e, d float64) {
	s.mag = [3]float64{n, e, d}
}

// MagField returns the earth magnetic field (NED).
func (s *Scenario) MagField() [3]float64 {
	return s.mag
}

// BeginTime returns the time stamp when the scenario begins.
func (s *Scenario) BeginTime() float64 {
	return s.t[0]
}

// EndTime returns the time stamp when the scenario ends.
func (s *Scenario) EndTime() float64 {
	return s.t[len(s.t)-1]
}

// Eulers returns the interpolated true attitude at t.
func (s *Scenario) Eulers(t float64) (phi, theta, psi float64, err error) {
	if t < s.t[0] || t > s.t[len(s.t)-1] {
		return 0, 0, 0, ErrOutsideScenario
	}
	ix := 0
	if t > s.t[0] {
		ix = sort.SearchFloat64s(s.t, t) - 1
	}
	f := (s.t[ix+1] - t) / (s.t[ix+1] - s.t[ix])
	phi = f*s.phi[ix] + (1-f)*s.phi[ix+1]
	theta = f*s.theta[ix] + (1-f)*s.theta[ix+1]
	psi = f*s.psi[ix] + (1-f)*s.psi[ix+1]
	return phi, theta, psi, nil
}

// Interpolate returns the true earth to body rotation at t.
func (s *Scenario) Interpolate(t float64) (orientation.Reps, error) {
	phi, theta, psi, err := s.Eulers(t)
	if err != nil {
		return orientation.Identity(), err
	}
	return orientation.FromEulers(phi, theta, psi), nil
}

// BodyRates returns the body angular rate p, q, r (rad/s) at t from the
// change of attitude over a short step.
func (s *Scenario) BodyRates(t float64) ([3]float64, error) {
	const ddt = 0.001
	t0, t1 := t, t+ddt
	if t1 > s.EndTime() {
		t1 = s.EndTime()
		t0 = t1 - ddt
	}
	r0, err := s.Interpolate(t0)
	if err != nil {
		return [3]float64{}, err
	}
	r1, err := s.Interpolate(t1)
	if err != nil {
		return [3]float64{}, err
	}

	// q1 = q0 * dq, dq ~ (1, w dt/2)
	dq := quaternion.Prod(r0.Quat().Conj(), r1.Quat())
	if dq.W < 0 {
		dq = quaternion.Quaternion{W: -dq.W, X: -dq.X, Y: -dq.Y, Z: -dq.Z}
	}
	return [3]float64{2 * dq.X / ddt, 2 * dq.Y / ddt, 2 * dq.Z / ddt}, nil
}

// Std rate turn bank at the given true airspeed (kt): 3°/s.
func standardRateBank(airspeed float64) float64 {
	const kt = 1852.0 / 3600
	return math.Atan(airspeed * kt * (2 * pi / 120) / G)
}

func mustScenario(name string, t, phi, theta, psi []float64) *Scenario {
	s, err := NewScenario(name, t, phi, theta, psi)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	bank  = standardRateBank(120)
	bank1 = standardRateBank(95)
)

// Builtin scenarios.
var builtins = map[string]func() *Scenario{
	"static": func() *Scenario {
		return mustScenario("static",
			[]float64{0, 60},
			[]float64{0, 0},
			[]float64{0, 0},
			[]float64{0, 0})
	},
	// start, initiate roll-in, end roll-in, initiate roll-out, end roll-out, end
	"turn": func() *Scenario {
		return mustScenario("turn",
			[]float64{0, 10, 15, 255, 260, 270},
			[]float64{0, 0, bank, bank, 0, 0},
			[]float64{0, 0, pi / 90, pi / 90, 0, 0},
			[]float64{0, 0, 0, 4 * pi, 4 * pi, 4 * pi})
	},
	"takeoff": func() *Scenario {
		return mustScenario("takeoff",
			[]float64{0, 10, 30, 35, 55, 115, 120, 150, 155, 175, 180, 210, 215, 230},
			[]float64{0, 0, 0, 0, 0, 0, -bank1, -bank1, 0, 0, -bank, -bank, 0, 0},
			[]float64{0, 0, 0, 0.2, 0.2, 0.2, 0.12, 0.12, 0.12, 0.03, 0.03, 0.03, 0, 0},
			[]float64{0, 0, 0, 0, 0, 0, 0, -pi / 2, -pi / 2, -pi / 2, -pi / 2, -pi, -pi, -pi})
	},
}

// Builtin returns a fresh copy of the named built-in scenario.
func Builtin(name string) (*Scenario, bool) {
	mk, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return mk(), true
}

// BuiltinNames lists the built-in scenarios in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for k := range builtins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
