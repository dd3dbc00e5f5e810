package ahrs

// lowPass is the noise rejection for one three-axis sensor channel: an
// optional outlier cut followed by exponential smoothing
//
//	y = (w*y_prev + x) / (w+1)
//
// With w == 0 the sample passes through, with w == 1 it is averaged with the
// previous output.
type lowPass struct {
	weight    int64
	cut       bool
	threshold int64
	seed      bool // start smoothing from the first sample instead of from prev

	last   [3]int32 // previous raw sample, for the cut
	primed bool
}

func newLowPass(weight int32, cut bool, threshold int32, seed bool) *lowPass {
	return &lowPass{
		weight:    int64(weight),
		cut:       cut,
		threshold: int64(threshold),
		seed:      seed,
	}
}

// reset forgets the previous sample, so the next one is always accepted.
func (f *lowPass) reset() {
	f.last = [3]int32{}
	f.primed = false
}

// jumped reports whether any axis of x moved more than the threshold since
// the previous sample.
func (f *lowPass) jumped(x [3]int32) bool {
	for i := range x {
		d := int64(x[i]) - int64(f.last[i])
		if d > f.threshold || d < -f.threshold {
			return true
		}
	}
	return false
}

// filter returns the new output given the previous output prev and the raw
// sample x. When the sample is cut, prev is returned and ok is false. The raw
// sample is remembered either way.
func (f *lowPass) filter(prev, x [3]int32) (y [3]int32, ok bool) {
	first := !f.primed
	rejected := f.cut && !first && f.jumped(x)
	f.last = x
	f.primed = true
	if rejected {
		return prev, false
	}

	if first && f.seed {
		prev = x
	}
	for i := range x {
		y[i] = int32((f.weight*int64(prev[i]) + int64(x[i])) / (f.weight + 1))
	}
	return y, true
}
