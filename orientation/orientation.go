// Package orientation converts between the representations of a fixed frame
// rotation (quaternion, rotation matrix, Euler angles in float and fixed point)
// and caches each one the first time it is asked for.
package orientation

import (
	"math"

	"github.com/skelterjohn/go.matrix"
	"github.com/westphae/quaternion"

	"github.com/yin1008/paparazzi/fixed"
)

const (
	haveRmat = 1 << iota
	haveEulers
	haveEulersInt
)

// Reps holds a rotation from frame A to frame B. The quaternion is the
// reference representation; the others are derived lazily.
// A Reps is not safe for concurrent use.
type Reps struct {
	q         quaternion.Quaternion
	rmat      *matrix.DenseMatrix
	eulers    [3]float64
	eulersInt fixed.Eulers
	have      uint8
}

// Identity returns the rotation that leaves every vector unchanged.
func Identity() Reps {
	return Reps{q: quaternion.Quaternion{W: 1}}
}

// FromQuat builds a Reps from q, normalised to unit length.
// A zero quaternion gives the identity.
func FromQuat(q quaternion.Quaternion) Reps {
	if q.W == 0 && q.X == 0 && q.Y == 0 && q.Z == 0 {
		return Identity()
	}
	return Reps{q: q.Unit()}
}

// FromEulers builds a Reps from ZYX Euler angles in radians.
func FromEulers(phi, theta, psi float64) Reps {
	return FromQuat(ToQuaternion(phi, theta, psi))
}

// FromEulersInt builds a Reps from fixed-point Euler angles.
func FromEulersInt(e fixed.Eulers) Reps {
	r := FromEulers(e.Real())
	r.eulersInt = e
	r.have |= haveEulersInt
	return r
}

// Compose returns the rotation a→c given a→b and b→c.
func Compose(ab, bc Reps) Reps {
	return FromQuat(quaternion.Prod(ab.Quat(), bc.Quat()))
}

// Inverse returns the rotation b→a.
func (r *Reps) Inverse() Reps {
	return FromQuat(r.Quat().Conj())
}

// Quat returns the unit quaternion.
func (r *Reps) Quat() quaternion.Quaternion {
	if r.q == (quaternion.Quaternion{}) {
		r.q.W = 1
	}
	return r.q
}

// RotationMatrix returns the 3x3 matrix taking components in frame A to
// components in frame B.
func (r *Reps) RotationMatrix() *matrix.DenseMatrix {
	if r.have&haveRmat == 0 {
		r.rmat = RotationMatrixOfQuat(r.Quat())
		r.have |= haveRmat
	}
	return r.rmat
}

// Eulers returns the ZYX Euler angles phi, theta, psi in radians.
func (r *Reps) Eulers() (phi, theta, psi float64) {
	if r.have&haveEulers == 0 {
		r.eulers[0], r.eulers[1], r.eulers[2] = EulersOfRotationMatrix(r.RotationMatrix())
		r.have |= haveEulers
	}
	return r.eulers[0], r.eulers[1], r.eulers[2]
}

// EulersInt returns the Euler angles at fixed.Angle resolution.
func (r *Reps) EulersInt() fixed.Eulers {
	if r.have&haveEulersInt == 0 {
		r.eulersInt = fixed.EulersOfReal(r.Eulers())
		r.have |= haveEulersInt
	}
	return r.eulersInt
}

// Rotate expresses v, given in frame A, in frame B.
func (r *Reps) Rotate(v [3]float64) [3]float64 {
	col := matrix.MakeDenseMatrix([]float64{v[0], v[1], v[2]}, 3, 1)
	out := matrix.Product(r.RotationMatrix(), col)
	return [3]float64{out.Get(0, 0), out.Get(1, 0), out.Get(2, 0)}
}

// ToQuaternion returns the quaternion of the ZYX Euler rotation phi (roll),
// theta (pitch), psi (yaw).
func ToQuaternion(phi, theta, psi float64) quaternion.Quaternion {
	sphi, cphi := math.Sincos(phi / 2)
	stheta, ctheta := math.Sincos(theta / 2)
	spsi, cpsi := math.Sincos(psi / 2)

	return quaternion.Quaternion{
		W: cphi*ctheta*cpsi + sphi*stheta*spsi,
		X: -cphi*stheta*spsi + sphi*ctheta*cpsi,
		Y: cphi*stheta*cpsi + sphi*ctheta*spsi,
		Z: cphi*ctheta*spsi - sphi*stheta*cpsi,
	}
}

// RotationMatrixOfQuat returns the frame rotation matrix of the unit quaternion q.
func RotationMatrixOfQuat(q quaternion.Quaternion) *matrix.DenseMatrix {
	qi2, qx2, qy2, qz2 := q.W*q.W, q.X*q.X, q.Y*q.Y, q.Z*q.Z
	return matrix.MakeDenseMatrix([]float64{
		qi2 + qx2 - qy2 - qz2, 2 * (q.X*q.Y + q.W*q.Z), 2 * (q.X*q.Z - q.W*q.Y),
		2 * (q.X*q.Y - q.W*q.Z), qi2 - qx2 + qy2 - qz2, 2 * (q.Y*q.Z + q.W*q.X),
		2 * (q.X*q.Z + q.W*q.Y), 2 * (q.Y*q.Z - q.W*q.X), qi2 - qx2 - qy2 + qz2,
	}, 3, 3)
}

// EulersOfRotationMatrix extracts ZYX Euler angles from m. Pitch is clamped to
// [-Pi/2, Pi/2] when rounding pushes |m[0][2]| past one.
func EulersOfRotationMatrix(m *matrix.DenseMatrix) (phi, theta, psi float64) {
	phi = math.Atan2(m.Get(1, 2), m.Get(2, 2))
	s := -m.Get(0, 2)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	theta = math.Asin(s)
	psi = math.Atan2(m.Get(0, 1), m.Get(0, 0))
	return
}
