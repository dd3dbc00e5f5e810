package ahrs

import (
	"errors"
	"fmt"

	"github.com/yin1008/paparazzi/fixed"
)

var (
	ErrInvalidConfig   = errors.New("ahrs: invalid config")
	ErrDegenerateAccel = errors.New("ahrs: accelerometer vector too small for tilt")
	ErrDegenerateMag   = errors.New("ahrs: magnetometer vector too small for heading")
)

// ValidateSample checks that accel and mag are long enough for their angles
// to be defined. The core filter never calls it.
func (f *Filter) ValidateSample(accel, mag fixed.Vect3) error {
	if n := accel.Norm(); n < fixed.AccelOfReal(f.cfg.MinAccelNorm) {
		return fmt.Errorf("%w: |accel| = %.3f m/s²", ErrDegenerateAccel, fixed.RealOfAccel(n))
	}
	if n := mag.Norm(); n < fixed.MagOfReal(f.cfg.MinMagNorm) {
		return fmt.Errorf("%w: |mag| = %.3f", ErrDegenerateMag, fixed.RealOfMag(n))
	}
	return nil
}

// AlignChecked runs ValidateSample and then Align. On a degenerate sample the
// filter is left untouched.
func (f *Filter) AlignChecked(gyro fixed.Rates, accel, mag fixed.Vect3) (bool, error) {
	if err := f.ValidateSample(accel, mag); err != nil {
		return false, err
	}
	return f.Align(gyro, accel, mag), nil
}
