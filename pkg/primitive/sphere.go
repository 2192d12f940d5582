package primitive

import (
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sphereSolver is the ellipsoid special case with three equal axes.
type sphereSolver struct {
	v    v3.Vec
	r    float64
	rinv float64
}

// Compile-time interface checks.
var (
	_ kernel.Solver     = (*sphereSolver)(nil)
	_ kernel.Sphereable = (*sphereSolver)(nil)
)

func newSphere(v v3.Vec, r float64) *sphereSolver {
	return &sphereSolver{v: v, r: r, rinv: 1 / r}
}

// prepSphere places the sphere as an ellipsoid so that a non-uniform
// placement yields a proper ellipsoid instead of a wrong sphere.
func prepSphere(p SphereParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	if p.Radius < tol.Dist {
		return nil, kernel.Invalid(kernel.KindSphere, "radius %g too small", p.Radius)
	}
	v := xformPoint(xform, p.Center)
	a := xformDir(xform, v3.Vec{X: p.Radius})
	b := xformDir(xform, v3.Vec{Y: p.Radius})
	c := xformDir(xform, v3.Vec{Z: p.Radius})
	return newEll(v, a, b, c, tol)
}

func (s *sphereSolver) Kind() kernel.Kind { return kernel.KindSphere }

func (s *sphereSolver) Bounds() sdf.Box3 {
	r := v3.Vec{X: s.r, Y: s.r, Z: s.r}
	return sdf.Box3{Min: s.v.Sub(r), Max: s.v.Add(r)}
}

func (s *sphereSolver) BoundingSphere() (v3.Vec, float64) { return s.v, s.r }

func (s *sphereSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	pp := ray.Pt.Sub(s.v).MulScalar(s.rinv)
	dp := ray.Dir.MulScalar(s.rinv)
	return unitSphereShot(s, ray, pp, dp, dst)
}

func (s *sphereSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	return kernel.Unit(pt.Sub(s.v))
}
