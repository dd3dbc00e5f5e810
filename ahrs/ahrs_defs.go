// Package ahrs estimates roll, pitch, yaw and gyro bias with a fixed-point
// complementary filter in Euler representation.
//
// Gyro rates are integrated at a fixed frequency (Propagate) into a high
// resolution Euler estimate. Tilt from the accelerometer and heading from the
// magnetometer (UpdateAccel, UpdateMag) are low-pass filtered and fed back
// through a proportional correction whose divisor is the reinjection gain.
package ahrs

import (
	"math"

	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/orientation"
)

const (
	Pi  = math.Pi
	Deg = Pi / 180
)

// Status is the lifecycle state of a Filter.
type Status uint8

const (
	StatusUninit Status = iota
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusUninit:
		return "uninit"
	case StatusRunning:
		return "running"
	}
	return "unknown"
}

// Filter holds the complete state of one complementary filter.
//
// Make one with New. The zero Filter is also ready to use and behaves as
// New(DefaultConfig()) from its first Init, Align or UpdateAccel call.
//
// A Filter does no locking. All calls on one Filter must come from a single
// execution context or be serialised by the caller; overlapping Propagate and
// Update* calls are undefined.
type Filter struct {
	Status    Status
	IsAligned bool

	GyroBias fixed.Rates // set once by Align
	ImuRate  fixed.Rates // low-passed unbiased body rate, the integrated quantity

	EulerEstimate fixed.HighResEulers // running estimate, Psi kept in [-Pi, Pi)
	LtpToImuEuler fixed.Eulers        // EulerEstimate at output resolution

	Measurement        fixed.HighResEulers // latest tilt (accel) and heading (mag)
	MeasurementLowPass fixed.HighResEulers
	Residual           fixed.HighResEulers // MeasurementLowPass - EulerEstimate

	ReinjectionGain int32
	MagneticOffset  fixed.Angle

	BodyToSensor orientation.Reps

	cfg         Config
	rateFilter  *lowPass
	accelFilter *lowPass
	accelLP     fixed.Vect3
}

// Provider is the call surface a scheduler drives. *Filter implements it.
type Provider interface {
	Align(gyro fixed.Rates, accel, mag fixed.Vect3) bool
	Propagate(gyro fixed.Rates)
	UpdateAccel(accel fixed.Vect3) (fixed.Vect3, bool)
	UpdateMag(mag fixed.Vect3)
	Attitude() fixed.Eulers
	Aligned() bool
}

var _ Provider = (*Filter)(nil)
