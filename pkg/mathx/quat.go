package mathx

import "math"

// Quat is a unit quaternion used for entity and body orientation.
type Quat struct {
	X, Y, Z, W float64
}

// Identity returns the identity rotation.
func Identity() Quat { return Quat{0, 0, 0, 1} }

// FromAxisAngle builds a quaternion representing a rotation of angle
// radians around axis (which need not be normalized).
func FromAxisAngle(axis Vec3, angle float64) Quat {
	axis = axis.Normalize()
	s, c := math.Sincos(angle / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}

// Mul returns the Hamilton product q * o: the composed rotation applies o
// first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return Identity()
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// FromEuler313 builds the standard 3-1-3 (Ω, i, ω) composition used to
// rotate an orbital-plane vector into the parent's reference frame.
func FromEuler313(omega, inclination, argPeriapsis float64) Quat {
	rOmega := FromAxisAngle(Vec3{Z: 1}, omega)
	rInc := FromAxisAngle(Vec3{X: 1}, inclination)
	rArg := FromAxisAngle(Vec3{Z: 1}, argPeriapsis)
	return rOmega.Mul(rInc).Mul(rArg).Normalize()
}

// Rotate applies q to vector v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	uv := u.Cross(v)
	uuv := u.Cross(uv)
	return v.Add(uv.Scale(2 * q.W)).Add(uuv.Scale(2))
}
