package sim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/orientation"
)

// Sensors describes the IMU that flies a scenario.
// Gyro noise (Gaussian stdev) and bias are in °/s,
// accel noise and bias in m/s², magnetometer noise and bias in field units.
type Sensors struct {
	GyroNoise  float64
	GyroBias   [3]float64
	AccelNoise float64
	AccelBias  [3]float64
	MagNoise   float64
	MagBias    [3]float64
	Mount      [3]float64 // body to sensor Euler angles, degrees
	Seed       uint64
}

// Reading is one synthesised IMU sample in fixed point, sensor frame.
type Reading struct {
	T     float64
	Gyro  fixed.Rates
	Accel fixed.Vect3
	Mag   fixed.Vect3
}

// synth turns a scenario into sensor readings.
type synth struct {
	sc      *Scenario
	s       Sensors
	mount   orientation.Reps
	gyroN   distuv.Normal
	accelN  distuv.Normal
	magN    distuv.Normal
	noiseOn [3]bool
}

func newSynth(sc *Scenario, s Sensors) *synth {
	src := rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)
	return &synth{
		sc:      sc,
		s:       s,
		mount:   orientation.FromEulers(s.Mount[0]*deg, s.Mount[1]*deg, s.Mount[2]*deg),
		gyroN:   distuv.Normal{Mu: 0, Sigma: s.GyroNoise * deg, Src: src},
		accelN:  distuv.Normal{Mu: 0, Sigma: s.AccelNoise, Src: src},
		magN:    distuv.Normal{Mu: 0, Sigma: s.MagNoise, Src: src},
		noiseOn: [3]bool{s.GyroNoise > 0, s.AccelNoise > 0, s.MagNoise > 0},
	}
}

func noisy(n distuv.Normal, on bool) float64 {
	if !on {
		return 0
	}
	return n.Rand()
}

// SensorAttitude returns the true earth to sensor rotation at t.
func (y *synth) SensorAttitude(t float64) (orientation.Reps, error) {
	body, err := y.sc.Interpolate(t)
	if err != nil {
		return body, err
	}
	return orientation.Compose(body, y.mount), nil
}

// Read synthesises the IMU at t. The accelerometer sees gravity only; the
// scenarios are coordinated manoeuvres where the tilt assumption is what is
// being tested, not the vehicle dynamics.
func (y *synth) Read(t float64) (Reading, error) {
	ltpToImu, err := y.SensorAttitude(t)
	if err != nil {
		return Reading{T: t}, err
	}
	bodyRates, err := y.sc.BodyRates(t)
	if err != nil {
		return Reading{T: t}, err
	}

	h := y.mount.Rotate(bodyRates)
	a := ltpToImu.Rotate([3]float64{0, 0, -G})
	m := ltpToImu.Rotate(y.sc.MagField())

	for i := range 3 {
		h[i] += y.s.GyroBias[i]*deg + noisy(y.gyroN, y.noiseOn[0])
		a[i] += y.s.AccelBias[i] + noisy(y.accelN, y.noiseOn[1])
		m[i] += y.s.MagBias[i] + noisy(y.magN, y.noiseOn[2])
	}

	return Reading{
		T:     t,
		Gyro:  fixed.RatesOfReal(h[0], h[1], h[2]),
		Accel: fixed.AccelOfRealVect(a[0], a[1], a[2]),
		Mag:   fixed.MagOfRealVect(m[0], m[1], m[2]),
	}, nil
}
