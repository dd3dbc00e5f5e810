package ahrs

import "github.com/yin1008/paparazzi/fixed"

// TiltFromAccel returns roll and pitch from an accelerometer vector, assuming
// the only specific force is gravity (no sustained dynamic acceleration).
//
//	phi   = atan2(-ay, -az)
//	theta = atan2(cos(phi) ax, -az)
func TiltFromAccel(accel fixed.Vect3) (phi, theta fixed.HighResAngle) {
	p := fixed.Atan2(-accel.Y, -accel.Z)
	cphiAx := (int64(fixed.Cos(p)) * int64(accel.X)) >> fixed.TrigFrac
	th := fixed.Atan2(cphiAx, -int64(accel.Z))
	return p.HighRes(), th.HighRes()
}

// HeadingFromMag returns yaw from a magnetometer vector, using roll phi and
// pitch theta to project the field onto the local level plane. The magnetic
// offset is subtracted and the result wrapped into [-Pi, Pi).
func HeadingFromMag(mag fixed.Vect3, phi, theta, offset fixed.Angle) fixed.HighResAngle {
	sphi, cphi := int64(fixed.Sin(phi)), int64(fixed.Cos(phi))
	stheta, ctheta := int64(fixed.Sin(theta)), int64(fixed.Cos(theta))

	sphiStheta := (sphi * stheta) >> fixed.TrigFrac
	cphiStheta := (cphi * stheta) >> fixed.TrigFrac

	mx, my, mz := int64(mag.X), int64(mag.Y), int64(mag.Z)
	mn := ctheta*mx + sphiStheta*my + cphiStheta*mz
	me := cphi*my - sphi*mz

	psi := -fixed.Atan2(me, mn) - offset
	return fixed.NormalizeAngle(psi).HighRes()
}
