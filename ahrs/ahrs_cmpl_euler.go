package ahrs

import (
	"github.com/westphae/quaternion"

	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/orientation"
)

// New returns an initialised, unaligned Filter using cfg.
func New(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{cfg: cfg, BodyToSensor: orientation.Identity()}
	f.Init()
	return f, nil
}

// Config returns the configuration the Filter was built with.
func (f *Filter) Config() Config {
	return f.cfg
}

// setup runs Init on a zero Filter.
func (f *Filter) setup() {
	if f.rateFilter == nil {
		f.Init()
	}
}

// Init resets the filter to the unaligned state with zero estimate, rate and
// bias, and reloads the gain and magnetic offset from the configuration.
// The body to sensor orientation is kept.
func (f *Filter) Init() {
	if f.cfg == (Config{}) {
		f.cfg = DefaultConfig()
	}
	f.Status = StatusUninit
	f.IsAligned = false

	f.LtpToImuEuler = fixed.Eulers{}
	f.EulerEstimate = fixed.HighResEulers{}
	f.Measurement = fixed.HighResEulers{}
	f.MeasurementLowPass = fixed.HighResEulers{}
	f.Residual = fixed.HighResEulers{}
	f.ImuRate = fixed.Rates{}
	f.GyroBias = fixed.Rates{}

	f.ReinjectionGain = f.cfg.ReinjectionGain
	f.MagneticOffset = f.cfg.magneticOffset()

	n := f.cfg.Noise
	f.rateFilter = newLowPass(f.cfg.rateWeight(), n.OutlierCut, int32(fixed.RateOfReal(n.RateCutThreshold)), false)
	f.accelFilter = newLowPass(f.cfg.accelWeight(), n.OutlierCut, fixed.AccelOfReal(n.AccelCutThreshold), true)
	f.accelLP = fixed.Vect3{}
}

// Align initialises the attitude from one static snapshot: tilt from accel,
// heading from mag and the bias from gyro. It does not check its inputs (see
// AlignChecked) and always returns true. It must be called once per flight.
func (f *Filter) Align(gyro fixed.Rates, accel, mag fixed.Vect3) bool {
	f.setup()
	f.Measurement.Phi, f.Measurement.Theta = TiltFromAccel(accel)
	f.LtpToImuEuler = f.Measurement.Eulers()
	f.Measurement.Psi = HeadingFromMag(mag, f.LtpToImuEuler.Phi, f.LtpToImuEuler.Theta, f.MagneticOffset)

	f.MeasurementLowPass = f.Measurement
	f.EulerEstimate = f.Measurement
	f.LtpToImuEuler = f.EulerEstimate.Eulers()
	f.Residual = fixed.HighResEulers{}

	f.GyroBias = gyro

	f.rateFilter.reset()
	f.accelFilter.reset()
	f.accelLP = accel

	f.Status = StatusRunning
	f.IsAligned = true
	return true
}

// Propagate runs one control-loop tick: unbias and low-pass the gyro,
// integrate the Euler rates, then pull the estimate towards the low-passed
// measurement by Residual/ReinjectionGain. It does nothing before alignment.
func (f *Filter) Propagate(gyro fixed.Rates) {
	if f.Status != StatusRunning {
		return
	}

	unbiased := gyro.Sub(f.GyroBias)
	if rate, ok := f.rateFilter.filter(f.ImuRate.Array(), unbiased.Array()); ok {
		f.ImuRate = fixed.RatesOfArray(rate)
	}

	// integrate
	eulerDot := fixed.EulersDotOfRates(f.LtpToImuEuler, f.ImuRate).HighRes()
	f.EulerEstimate = f.EulerEstimate.Add(eulerDot.Div(f.cfg.PropagateFrequency))

	f.MeasurementLowPass = averageMeasurement(f.MeasurementLowPass, f.Measurement)

	f.Residual = f.MeasurementLowPass.Sub(f.EulerEstimate)
	f.Residual.Psi = fixed.NormalizeHighRes(f.Residual.Psi)

	correction := f.Residual.Div(max(f.ReinjectionGain, 1))
	f.EulerEstimate = f.EulerEstimate.Add(correction)
	f.EulerEstimate.Psi = fixed.NormalizeHighRes(f.EulerEstimate.Psi)

	f.LtpToImuEuler = f.EulerEstimate.Eulers()
}

// averageMeasurement is the one-half exponential average of the measurement.
// Unlike a plain (lp+meas)/2, yaw is averaged along the shorter arc, so a
// heading that crosses the ±Pi seam is not pulled through zero: 170° and
// -170° average to -180°, not 0°.
func averageMeasurement(lp, meas fixed.HighResEulers) fixed.HighResEulers {
	return fixed.HighResEulers{
		Phi:   (lp.Phi + meas.Phi) / 2,
		Theta: (lp.Theta + meas.Theta) / 2,
		Psi:   fixed.NormalizeHighRes(lp.Psi + fixed.ShortestArc(lp.Psi, meas.Psi)/2),
	}
}

// UpdateAccel stores the tilt measured by accel. The vector first goes
// through the configured noise rejection; the filtered copy is returned, and
// ok is false when the sample was cut and the previous tilt kept.
func (f *Filter) UpdateAccel(accel fixed.Vect3) (filtered fixed.Vect3, ok bool) {
	f.setup()
	v, ok := f.accelFilter.filter(f.accelLP.Array(), accel.Array())
	if !ok {
		return accel, false
	}
	f.accelLP = fixed.Vect3OfArray(v)
	f.Measurement.Phi, f.Measurement.Theta = TiltFromAccel(f.accelLP)
	return f.accelLP, true
}

// UpdateMag stores the heading measured by mag, tilt-compensated with the
// current estimate (not the latest accelerometer tilt).
func (f *Filter) UpdateMag(mag fixed.Vect3) {
	f.Measurement.Psi = HeadingFromMag(mag, f.LtpToImuEuler.Phi, f.LtpToImuEuler.Theta, f.MagneticOffset)
}

// SetBodyToSensor sets the mounting orientation of the sensor in the body.
// Before alignment it also resets LtpToImuEuler so that the body attitude
// reads zero.
func (f *Filter) SetBodyToSensor(o orientation.Reps) {
	f.BodyToSensor = o
	if !f.IsAligned {
		f.LtpToImuEuler = f.BodyToSensor.EulersInt()
	}
}

// SetBodyToSensorQuat is SetBodyToSensor for a quaternion.
func (f *Filter) SetBodyToSensorQuat(q quaternion.Quaternion) {
	f.SetBodyToSensor(orientation.FromQuat(q))
}

// Attitude returns the sensor attitude at output resolution.
func (f *Filter) Attitude() fixed.Eulers {
	return f.LtpToImuEuler
}

// AttitudeReal returns the sensor attitude in radians.
func (f *Filter) AttitudeReal() (phi, theta, psi float64) {
	return f.LtpToImuEuler.Real()
}

// BodyAttitude returns the body attitude in radians, removing the mounting
// orientation from the sensor attitude.
func (f *Filter) BodyAttitude() (phi, theta, psi float64) {
	ltpToImu := orientation.FromEulersInt(f.LtpToImuEuler)
	imuToBody := f.BodyToSensor.Inverse()
	ltpToBody := orientation.Compose(ltpToImu, imuToBody)
	return ltpToBody.Eulers()
}

// Aligned reports whether Align has run since the last Init.
func (f *Filter) Aligned() bool {
	return f.IsAligned
}
