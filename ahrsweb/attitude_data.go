package ahrsweb

import (
	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/sim"
)

const deg = ahrs.Deg

// AttitudeData is one telemetry message, sent as JSON.
type AttitudeData struct {
	T float64 // s

	// Filter state
	Status                    string
	Aligned                   bool
	Roll, Pitch, Heading      float64 // estimate, °
	DRoll, DPitch, DHeading   float64 // residual, °
	D1, D2, D3                float64 // gyro bias, °/s
	Gain                      int32
	AccelCut                  bool
	TrueValid                 bool    // the fields below are only known in a simulation
	TrueRoll, TruePitch       float64 // °
	TrueHeading               float64
	ErrRoll, ErrPitch, ErrHdg float64 // °

	// Measurement variables
	B1, B2, B3 float64 // gyro rates, °/s, sensor frame
	A1, A2, A3 float64 // accelerometer, m/s², sensor frame
	M1, M2, M3 float64 // magnetometer, sensor frame
}

// SetFilter copies the state of f.
func (d *AttitudeData) SetFilter(f *ahrs.Filter) {
	d.Status = f.Status.String()
	d.Aligned = f.IsAligned
	d.Roll, d.Pitch, d.Heading = eulersDeg(f.Attitude())
	d.DRoll, d.DPitch, d.DHeading = eulersDeg(f.Residual.Eulers())
	d.D1 = f.GyroBias.P.Real() / deg
	d.D2 = f.GyroBias.Q.Real() / deg
	d.D3 = f.GyroBias.R.Real() / deg
	d.Gain = f.ReinjectionGain
}

// SetSensors copies raw fixed-point sensor readings.
func (d *AttitudeData) SetSensors(gyro fixed.Rates, accel, mag fixed.Vect3) {
	d.B1, d.B2, d.B3 = gyro.P.Real()/deg, gyro.Q.Real()/deg, gyro.R.Real()/deg
	d.A1, d.A2, d.A3 = fixed.RealOfAccel(accel.X), fixed.RealOfAccel(accel.Y), fixed.RealOfAccel(accel.Z)
	d.M1, d.M2, d.M3 = fixed.RealOfMag(mag.X), fixed.RealOfMag(mag.Y), fixed.RealOfMag(mag.Z)
}

// SetSample copies a simulation tick: truth, estimate, error and sensors.
func (d *AttitudeData) SetSample(s sim.Sample) {
	d.T = s.T
	d.TrueValid = true
	d.TrueRoll, d.TruePitch, d.TrueHeading = s.True[0]/deg, s.True[1]/deg, s.True[2]/deg
	d.Roll, d.Pitch, d.Heading = s.Estimate[0]/deg, s.Estimate[1]/deg, s.Estimate[2]/deg
	d.ErrRoll, d.ErrPitch, d.ErrHdg = s.Error[0]/deg, s.Error[1]/deg, s.Error[2]/deg
	d.AccelCut = s.AccelCut
	d.SetSensors(s.Reading.Gyro, s.Reading.Accel, s.Reading.Mag)
}

func eulersDeg(e fixed.Eulers) (phi, theta, psi float64) {
	phi, theta, psi = e.Real()
	return phi / deg, theta / deg, psi / deg
}
