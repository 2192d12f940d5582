package primitive

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Place builds a placement matrix from a translation and Euler angles in
// degrees. Rotation is applied X first, then Y, then Z, then the
// translation.
func Place(at, rotate v3.Vec) sdf.M44 {
	m := sdf.Translate3d(at)
	if rotate != (v3.Vec{}) {
		r := sdf.RotateZ(rotate.Z * math.Pi / 180).
			Mul(sdf.RotateY(rotate.Y * math.Pi / 180)).
			Mul(sdf.RotateX(rotate.X * math.Pi / 180))
		m = m.Mul(r)
	}
	return m
}

// xformPoint maps a position through m.
func xformPoint(m sdf.M44, p v3.Vec) v3.Vec {
	return m.MulPosition(p)
}

// xformDir maps a direction through m, ignoring the translation.
func xformDir(m sdf.M44, d v3.Vec) v3.Vec {
	return m.MulPosition(d).Sub(m.MulPosition(v3.Vec{}))
}

// mat3 is a 3x3 matrix stored by rows.
type mat3 [3]v3.Vec

// rowsOf builds a matrix from three row vectors.
func rowsOf(a, b, c v3.Vec) mat3 {
	return mat3{a, b, c}
}

func (m mat3) mul(v v3.Vec) v3.Vec {
	return v3.Vec{X: m[0].Dot(v), Y: m[1].Dot(v), Z: m[2].Dot(v)}
}

func (m mat3) transpose() mat3 {
	return mat3{
		{X: m[0].X, Y: m[1].X, Z: m[2].X},
		{X: m[0].Y, Y: m[1].Y, Z: m[2].Y},
		{X: m[0].Z, Y: m[1].Z, Z: m[2].Z},
	}
}

func (m mat3) mulMat(n mat3) mat3 {
	nt := n.transpose()
	var r mat3
	for i := 0; i < 3; i++ {
		r[i] = v3.Vec{X: m[i].Dot(nt[0]), Y: m[i].Dot(nt[1]), Z: m[i].Dot(nt[2])}
	}
	return r
}

// orthoBasis returns two unit vectors perpendicular to unit vector h and
// to each other, forming a right-handed frame (i, j, h).
func orthoBasis(h v3.Vec) (i, j v3.Vec) {
	// Start from the world axis least aligned with h.
	a := v3.Vec{X: 1}
	if math.Abs(h.X) > math.Abs(h.Y) || math.Abs(h.X) > math.Abs(h.Z) {
		if math.Abs(h.Y) < math.Abs(h.Z) {
			a = v3.Vec{Y: 1}
		} else {
			a = v3.Vec{Z: 1}
		}
	}
	i = a.Sub(h.MulScalar(a.Dot(h)))
	i = i.DivScalar(i.Length())
	j = h.Cross(i)
	return i, j
}
