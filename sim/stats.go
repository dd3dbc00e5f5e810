package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Axis names, in Euler order.
var Axes = [3]string{"phi", "theta", "psi"}

// NewVarianceAccumulator returns a function that, when passed a float,
// accumulates an exponentially weighted mean and variance with decay
// constant decay. The accumulator starts from the observation init and
// returns the effective number of observations, the mean and the variance.
func NewVarianceAccumulator(init, decay float64) func(float64) (n, mean, variance float64) {
	var (
		n float64 = 1
		m         = init
		v float64 = 0
	)

	return func(obs float64) (float64, float64, float64) {
		d := obs - m
		dm := (1 - decay) * d

		n = 1 + decay*n
		m += dm
		v = decay * (v + dm*d)
		return n, m, v
	}
}

// AxisStats summarises the estimation error of one Euler angle, radians.
type AxisStats struct {
	N      int
	Mean   float64
	StdDev float64
	RMS    float64
	MaxAbs float64

	RecentMean     float64 // exponentially weighted, see NewVarianceAccumulator
	RecentVariance float64
}

func (a AxisStats) String() string {
	return fmt.Sprintf("mean %+.3f° sd %.3f° rms %.3f° max %.3f° (recent %+.3f° ± %.3f°)",
		a.Mean/deg, a.StdDev/deg, a.RMS/deg, a.MaxAbs/deg,
		a.RecentMean/deg, math.Sqrt(a.RecentVariance)/deg)
}

// errorStats collects per-axis errors and feeds the recent accumulators.
type errorStats struct {
	decay  float64
	errs   [3][]float64
	recent [3]func(float64) (float64, float64, float64)
	last   [3][3]float64
}

func newErrorStats(decay float64) *errorStats {
	return &errorStats{decay: decay}
}

func (e *errorStats) add(err [3]float64) {
	for i, x := range err {
		e.errs[i] = append(e.errs[i], x)
		if e.recent[i] == nil {
			e.recent[i] = NewVarianceAccumulator(x, e.decay)
		}
		n, m, v := e.recent[i](x)
		e.last[i] = [3]float64{n, m, v}
	}
}

func (e *errorStats) summary() [3]AxisStats {
	var out [3]AxisStats
	for i, errs := range e.errs {
		if len(errs) == 0 {
			continue
		}
		a := &out[i]
		a.N = len(errs)
		a.Mean, a.StdDev = stat.MeanStdDev(errs, nil)
		a.RMS = floats.Norm(errs, 2) / math.Sqrt(float64(len(errs)))
		a.MaxAbs = math.Max(floats.Max(errs), -floats.Min(errs))
		a.RecentMean, a.RecentVariance = e.last[i][1], e.last[i][2]
	}
	return out
}
