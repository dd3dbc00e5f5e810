package sim

import (
	"bytes"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/fixed"
)

func TestNewScenarioErrors(t *testing.T) {
	_, err := NewScenario("short", []float64{0}, []float64{0}, []float64{0}, []float64{0})
	assert.Error(t, err)
	_, err = NewScenario("ragged", []float64{0, 1}, []float64{0}, []float64{0, 0}, []float64{0, 0})
	assert.Error(t, err)
	_, err = NewScenario("backwards", []float64{0, 1, 1}, []float64{0, 0, 0}, []float64{0, 0, 0}, []float64{0, 0, 0})
	assert.Error(t, err)
}

func TestScenarioEulers(t *testing.T) {
	sc, ok := Builtin("turn")
	require.True(t, ok)

	phi, theta, psi, err := sc.Eulers(12.5)
	require.NoError(t, err)
	assert.InDelta(t, bank/2, phi, 1e-12)
	assert.InDelta(t, pi/180, theta, 1e-12)
	assert.InDelta(t, 0, psi, 1e-12)

	_, _, psi, err = sc.Eulers(135)
	require.NoError(t, err)
	assert.InDelta(t, 2*pi, psi, 1e-12)

	_, _, _, err = sc.Eulers(-1)
	assert.ErrorIs(t, err, ErrOutsideScenario)
	_, err = sc.Interpolate(sc.EndTime() + 0.1)
	assert.ErrorIs(t, err, ErrOutsideScenario)
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"static", "takeoff", "turn"}, BuiltinNames())
	_, ok := Builtin("loop")
	assert.False(t, ok)
}

func TestBodyRatesInTurn(t *testing.T) {
	sc, _ := Builtin("turn")
	psiDot := 4 * pi / 240
	theta := pi / 90

	h, err := sc.BodyRates(100)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sin(theta)*psiDot, h[0], 1e-5)
	assert.InDelta(t, math.Sin(bank)*math.Cos(theta)*psiDot, h[1], 1e-5)
	assert.InDelta(t, math.Cos(bank)*math.Cos(theta)*psiDot, h[2], 1e-5)

	// at the end the step is taken backwards
	h, err = sc.BodyRates(sc.EndTime())
	require.NoError(t, err)
	assert.InDelta(t, 0, h[2], 1e-9)
}

func TestReadScenario(t *testing.T) {
	in := `T, Phi, Theta, Psi, MagN, MagE, MagD, Note
0, 0, 0, 0, 0.4, 0.1, 0.9, x
10, 30, 5, 90, 0, 0, 0, y
`
	sc, err := ReadScenario("csv", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 10.0, sc.EndTime())
	assert.Equal(t, [3]float64{0.4, 0.1, 0.9}, sc.MagField())

	phi, theta, psi, err := sc.Eulers(5)
	require.NoError(t, err)
	assert.InDelta(t, 15*deg, phi, 1e-12)
	assert.InDelta(t, 2.5*deg, theta, 1e-12)
	assert.InDelta(t, 45*deg, psi, 1e-12)

	_, err = ReadScenario("bad", strings.NewReader("T,Phi,Theta\n0,0,0\n"))
	assert.Error(t, err)
	_, err = ReadScenario("bad", strings.NewReader("T,Phi,Theta,Psi\n0,0,zero,0\n1,0,0,0\n"))
	assert.Error(t, err)
}

func TestLoadScenarioName(t *testing.T) {
	fn := t.TempDir() + "/climb.csv"
	require.NoError(t, os.WriteFile(fn, []byte("T,Phi,Theta,Psi\n0,0,0,0\n5,0,10,0\n"), 0o644))
	sc, err := LoadScenario(fn)
	require.NoError(t, err)
	assert.Equal(t, "climb", sc.Name)

	_, err = LoadScenario(t.TempDir() + "/missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSynthStatic(t *testing.T) {
	sc, _ := Builtin("static")
	y := newSynth(sc, Sensors{GyroBias: [3]float64{1, -2, 0.5}})

	r, err := y.Read(3)
	require.NoError(t, err)
	assert.Equal(t, fixed.RatesOfReal(1*deg, -2*deg, 0.5*deg), r.Gyro)
	assert.Equal(t, fixed.AccelOfRealVect(0, 0, -G), r.Accel)
	m := sc.MagField()
	assert.Equal(t, fixed.MagOfRealVect(m[0], m[1], m[2]), r.Mag)
}

func TestSynthMount(t *testing.T) {
	sc, _ := Builtin("static")
	y := newSynth(sc, Sensors{Mount: [3]float64{0, 0, 90}})

	r, err := y.Read(1)
	require.NoError(t, err)
	// north now lies along -y of the sensor
	m := sc.MagField()
	assert.InDelta(t, 0, fixed.RealOfMag(r.Mag.X), 1e-3)
	assert.InDelta(t, -m[0], fixed.RealOfMag(r.Mag.Y), 1e-3)
	assert.InDelta(t, m[2], fixed.RealOfMag(r.Mag.Z), 1e-3)
}

func TestSynthNoiseIsSeeded(t *testing.T) {
	sc, _ := Builtin("static")
	s := Sensors{GyroNoise: 0.5, AccelNoise: 0.2, MagNoise: 0.01, Seed: 42}
	a, err := newSynth(sc, s).Read(1)
	require.NoError(t, err)
	b, err := newSynth(sc, s).Read(1)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	s.Seed = 43
	c, err := newSynth(sc, s).Read(1)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestVarianceAccumulator(t *testing.T) {
	acc := NewVarianceAccumulator(2, 0.9)
	var n, m, v float64
	for i := 0; i < 500; i++ {
		n, m, v = acc(2)
	}
	assert.InDelta(t, 10, n, 1e-6)
	assert.Equal(t, 2.0, m)
	assert.Equal(t, 0.0, v)

	for i := 0; i < 500; i++ {
		_, m, v = acc(float64(i%2) * 2)
	}
	assert.InDelta(t, 1, m, 0.2)
	assert.InDelta(t, 1, v, 0.2)
}

func TestWrapPi(t *testing.T) {
	assert.InDelta(t, 0, wrapPi(2*pi), 1e-12)
	assert.InDelta(t, -pi, wrapPi(pi), 1e-12)
	assert.InDelta(t, -0.5, wrapPi(2*pi-0.5), 1e-12)
	assert.InDelta(t, 0.5, wrapPi(-2*pi+0.5), 1e-12)
}

func newFilter(t *testing.T) *ahrs.Filter {
	t.Helper()
	f, err := ahrs.New(ahrs.DefaultConfig())
	require.NoError(t, err)
	return f
}

func TestRunStatic(t *testing.T) {
	sc, _ := Builtin("static")
	f := newFilter(t)

	rc := DefaultRunConfig()
	rc.Sensors = Sensors{GyroBias: [3]float64{0.5, -0.3, 0.2}}
	res, err := Run(f, sc, rc)
	require.NoError(t, err)

	assert.Equal(t, "static", res.Scenario)
	assert.InDelta(t, 60-float64(rc.AlignSamples-1)/512, res.Duration, 0.01)
	for i, a := range res.Errors {
		assert.Less(t, a.MaxAbs, 0.05*deg, Axes[i])
	}
	assert.Equal(t, fixed.RatesOfReal(0.5*deg, -0.3*deg, 0.2*deg), f.GyroBias)
}

func TestRunTurn(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	sc, _ := Builtin("turn")
	cfg := ahrs.DefaultConfig()
	cfg.ReinjectionGain = 512 // 1 s time constant, so accel and mag bound the gyro drift
	f, err := ahrs.New(cfg)
	require.NoError(t, err)

	rc := DefaultRunConfig()
	rc.Sensors = Sensors{GyroNoise: 0.1, AccelNoise: 0.02, MagNoise: 0.001, GyroBias: [3]float64{1, 0, -1}, Seed: 7}
	res, err := Run(f, sc, rc)
	require.NoError(t, err)

	for i, a := range res.Errors {
		assert.Greater(t, a.N, 100000, Axes[i])
		assert.Less(t, a.RMS, 1*deg, "%s: %s", Axes[i], a)
		assert.Less(t, a.MaxAbs, 3*deg, "%s: %s", Axes[i], a)
	}
}

func TestRunMounted(t *testing.T) {
	sc, _ := Builtin("static")
	f := newFilter(t)

	rc := DefaultRunConfig()
	rc.Sensors = Sensors{Mount: [3]float64{0, 0, 90}}
	res, err := Run(f, sc, rc)
	require.NoError(t, err)

	for _, a := range res.Errors {
		assert.Less(t, a.MaxAbs, 0.05*deg)
	}
	_, _, psi := f.AttitudeReal()
	assert.InDelta(t, pi/2, psi, 1e-3)

	phi, theta, psi := f.BodyAttitude()
	assert.InDelta(t, 0, phi, 1e-3)
	assert.InDelta(t, 0, theta, 1e-3)
	assert.InDelta(t, 0, psi, 1e-3)
}

func TestRunAccelCuts(t *testing.T) {
	sc, _ := Builtin("static")
	cfg := ahrs.DefaultConfig()
	cfg.Noise.OutlierCut = true
	f, err := ahrs.New(cfg)
	require.NoError(t, err)

	rc := DefaultRunConfig()
	rc.Sensors = Sensors{AccelNoise: 12, Seed: 1}
	res, err := Run(f, sc, rc)
	require.NoError(t, err)
	assert.Positive(t, res.AccelCuts)
}

func TestRunObserverError(t *testing.T) {
	sc, _ := Builtin("static")
	stop := errors.New("stop")
	n := 0
	_, err := Run(newFilter(t), sc, DefaultRunConfig(), ObserverFunc(func(s Sample) error {
		n++
		if n == 10 {
			return stop
		}
		return nil
	}))
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 10, n)
}

func TestRunBadFrequency(t *testing.T) {
	sc, _ := Builtin("static")
	rc := DefaultRunConfig()
	rc.Frequency = 0
	_, err := Run(newFilter(t), sc, rc)
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	s := newSchedule(100, 0)
	fired := 0
	for i := 0; i < 512; i++ {
		if s.due(float64(i) / 512) {
			fired++
		}
	}
	assert.InDelta(t, 100, fired, 1)

	off := newSchedule(-1, 0)
	assert.False(t, off.due(10))

	every := newSchedule(0, 0)
	assert.True(t, every.due(0))
	assert.True(t, every.due(0.001))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerTo(&buf)
	require.NoError(t, err)

	rc := DefaultRunConfig()
	rc.AlignSamples = 1
	short, err := NewScenario("short", []float64{0, 0.01}, []float64{0, 0}, []float64{0, 0}, []float64{0, 0})
	require.NoError(t, err)
	_, err = Run(newFilter(t), short, rc, l)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6) // header and ticks 1..5 at 512 Hz
	assert.Equal(t, strings.Join(LogHeader, ","), lines[0])
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, ","), len(LogHeader))
	}
}

func TestPlot(t *testing.T) {
	rec := &Recorder{Every: 512}
	short, err := NewScenario("climb", []float64{0, 5, 10}, []float64{0, 0, 0.2}, []float64{0, 0.1, 0.1}, []float64{0, 0, 0.5})
	require.NoError(t, err)
	_, err = Run(newFilter(t), short, DefaultRunConfig(), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Samples)

	files, err := Plot(rec.Samples, t.TempDir(), "climb")
	require.NoError(t, err)
	require.Len(t, files, 4)
	for _, fn := range files {
		st, err := os.Stat(fn)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}

	_, err = Plot(nil, t.TempDir(), "empty")
	assert.Error(t, err)
}
