package sim

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/orientation"
)

var ErrAlignFailed = errors.New("sim: filter refused to align")

// RunConfig sets the timing of a simulation run.
type RunConfig struct {
	Frequency      int32   // Propagate rate, Hz; must match the filter's configuration
	AccelFrequency float64 // UpdateAccel rate, Hz; 0 means every tick
	MagFrequency   float64 // UpdateMag rate, Hz; 0 means every tick, negative disables the magnetometer
	AlignSamples   int     // samples averaged for Align
	SettleTime     float64 // s after alignment before errors are counted
	RecentDecay    float64 // decay of the exponentially weighted error statistics, per tick
	Sensors        Sensors
	Logger         *log.Logger // progress messages, nil for none
}

// DefaultRunConfig matches ahrs.DefaultConfig with a 100 Hz accelerometer and
// a 50 Hz magnetometer.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Frequency:      ahrs.DefaultPropagateFrequency,
		AccelFrequency: 100,
		MagFrequency:   50,
		AlignSamples:   100,
		SettleTime:     5,
		RecentDecay:    0.999,
	}
}

// Sample is what an Observer sees after each tick.
type Sample struct {
	T        float64
	True     [3]float64 // earth to sensor Euler angles, rad
	Estimate [3]float64
	Error    [3]float64 // Estimate - True, psi wrapped to [-Pi, Pi)
	Reading  Reading
	AccelCut bool // the filter rejected this tick's accelerometer update
	Counted  bool // the error went into the Result statistics
}

// Observer receives every Sample of a run, in time order.
type Observer interface {
	Observe(Sample) error
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Sample) error

func (f ObserverFunc) Observe(s Sample) error { return f(s) }

// Result summarises a run.
type Result struct {
	Scenario  string
	Ticks     int
	Duration  float64 // s of simulated time after alignment
	AccelCuts int
	Errors    [3]AxisStats
}

type mounter interface {
	SetBodyToSensor(orientation.Reps)
}

// schedule fires at a fixed frequency on a tick clock.
type schedule struct {
	period float64
	next   float64
	off    bool
}

func newSchedule(freq, start float64) schedule {
	if freq < 0 {
		return schedule{off: true}
	}
	if freq == 0 {
		return schedule{next: start}
	}
	return schedule{period: 1 / freq, next: start}
}

func (s *schedule) due(t float64) bool {
	if s.off || t < s.next-1e-9 {
		return false
	}
	s.next += s.period
	if s.next < t {
		s.next = t
	}
	return true
}

func wrapPi(a float64) float64 {
	a = math.Mod(a+pi, 2*pi)
	if a < 0 {
		a += 2 * pi
	}
	return a - pi
}

// Run flies p through sc. The filter is aligned on the mean of the first
// AlignSamples readings and then propagated at rc.Frequency until the end of
// the scenario.
func Run(p ahrs.Provider, sc *Scenario, rc RunConfig, obs ...Observer) (Result, error) {
	res := Result{Scenario: sc.Name}
	if rc.Frequency < 1 {
		return res, fmt.Errorf("sim: frequency must be positive, got %d", rc.Frequency)
	}
	y := newSynth(sc, rc.Sensors)
	if m, ok := p.(mounter); ok {
		m.SetBodyToSensor(y.mount)
	}

	dt := 1 / float64(rc.Frequency)
	begin := sc.BeginTime()
	tick := 0
	timeOf := func(i int) float64 { return begin + float64(i)*dt }

	// Align on the average of the first samples
	n := max(rc.AlignSamples, 1)
	var sum [9]int64
	for ; tick < n; tick++ {
		r, err := y.Read(timeOf(tick))
		if err != nil {
			return res, fmt.Errorf("sim: aligning %s: %w", sc.Name, err)
		}
		for i, v := range [3][3]int32{r.Gyro.Array(), r.Accel.Array(), r.Mag.Array()} {
			for j := range v {
				sum[3*i+j] += int64(v[j])
			}
		}
	}
	var mean [3][3]int32
	for i := range sum {
		mean[i/3][i%3] = int32(sum[i] / int64(n))
	}
	gyro := fixed.RatesOfArray(mean[0])
	accel := fixed.Vect3OfArray(mean[1])
	mag := fixed.Vect3OfArray(mean[2])
	if !p.Align(gyro, accel, mag) {
		return res, ErrAlignFailed
	}
	alignT := timeOf(tick - 1)
	if rc.Logger != nil {
		phi, theta, psi := p.Attitude().Real()
		rc.Logger.Printf("%s aligned at %.2fs: phi %.2f° theta %.2f° psi %.2f°\n",
			sc.Name, alignT, phi/deg, theta/deg, psi/deg)
	}

	errs := newErrorStats(rc.RecentDecay)
	accelSched := newSchedule(rc.AccelFrequency, timeOf(tick))
	magSched := newSchedule(rc.MagFrequency, timeOf(tick))
	nextReport := alignT + 10

	for ; timeOf(tick) <= sc.EndTime(); tick++ {
		t := timeOf(tick)
		r, err := y.Read(t)
		if err != nil {
			return res, fmt.Errorf("sim: reading sensors at %.3fs: %w", t, err)
		}

		p.Propagate(r.Gyro)
		s := Sample{T: t, Reading: r}
		if accelSched.due(t) {
			if _, ok := p.UpdateAccel(r.Accel); !ok {
				s.AccelCut = true
				res.AccelCuts++
			}
		}
		if magSched.due(t) {
			p.UpdateMag(r.Mag)
		}

		// Peek behind the curtain: the actual attitude, which the filter doesn't know
		truth, err := y.SensorAttitude(t)
		if err != nil {
			return res, err
		}
		s.True[0], s.True[1], s.True[2] = truth.Eulers()
		s.Estimate[0], s.Estimate[1], s.Estimate[2] = p.Attitude().Real()
		for i := range s.Error {
			s.Error[i] = s.Estimate[i] - s.True[i]
		}
		s.Error[2] = wrapPi(s.Error[2])

		if t >= alignT+rc.SettleTime {
			errs.add(s.Error)
			s.Counted = true
		}
		for _, o := range obs {
			if err := o.Observe(s); err != nil {
				return res, fmt.Errorf("sim: observer at %.3fs: %w", t, err)
			}
		}

		res.Ticks++
		if rc.Logger != nil && t >= nextReport {
			rc.Logger.Printf("Time: %.2f, error phi %+.2f° theta %+.2f° psi %+.2f°\n",
				t, s.Error[0]/deg, s.Error[1]/deg, s.Error[2]/deg)
			nextReport += 10
		}
	}

	res.Duration = float64(res.Ticks) * dt
	res.Errors = errs.summary()
	return res, nil
}
