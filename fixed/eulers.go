package fixed

// EulersDotOfRates converts body rates r into Euler angle rates at attitude e:
//
//	phi_dot   = p + sin(phi) tan(theta) q + cos(phi) tan(theta) r
//	theta_dot =     cos(phi) q          - sin(phi) r
//	psi_dot   =     sin(phi)/cos(theta) q + cos(phi)/cos(theta) r
//
// The result is in Angle units per second. At cos(theta) == 0 the transform is
// singular and zero is returned.
func EulersDotOfRates(e Eulers, r Rates) Eulers {
	sphi := int64(Sin(e.Phi))
	cphi := int64(Cos(e.Phi))
	stheta := int64(Sin(e.Theta))
	ctheta := int64(Cos(e.Theta))

	if ctheta == 0 {
		return Eulers{}
	}

	p, q, rr := int64(r.P), int64(r.Q), int64(r.R)
	cphiStheta := (cphi * stheta) >> TrigFrac
	sphiStheta := (sphi * stheta) >> TrigFrac

	return Eulers{
		Phi:   Angle(p + (sphiStheta*q)/ctheta + (cphiStheta*rr)/ctheta),
		Theta: Angle((cphi*q - sphi*rr) >> TrigFrac),
		Psi:   Angle((sphi*q)/ctheta + (cphi*rr)/ctheta),
	}
}
