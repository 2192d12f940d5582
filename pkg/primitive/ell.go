package primitive

import (
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ellSolver intersects rays with an ellipsoid by mapping it onto the
// unit sphere.
type ellSolver struct {
	v       v3.Vec // center
	sor     mat3   // scale * rotate: world offset -> unit sphere
	invRSSR mat3   // R^T S^2 R: world offset -> unnormalized normal
	box     sdf.Box3
	radius  float64 // longest semi-axis
}

// Compile-time interface checks.
var (
	_ kernel.Solver     = (*ellSolver)(nil)
	_ kernel.Sphereable = (*ellSolver)(nil)
)

func prepEll(p EllParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	v := xformPoint(xform, p.V)
	a := xformDir(xform, p.A)
	b := xformDir(xform, p.B)
	c := xformDir(xform, p.C)
	return newEll(v, a, b, c, tol)
}

// newEll validates the world-space axes and builds the solver. Equal
// axes come back as a sphere solver.
func newEll(v, a, b, c v3.Vec, tol kernel.Tol) (kernel.Solver, error) {
	magA, magB, magC := a.Length(), b.Length(), c.Length()
	for _, m := range []struct {
		name string
		mag  float64
	}{{"A", magA}, {"B", magB}, {"C", magC}} {
		if m.mag < tol.Dist {
			return nil, kernel.Invalid(kernel.KindEllipsoid, "zero-length %s vector (%g)", m.name, m.mag)
		}
	}

	au, bu, cu := a.DivScalar(magA), b.DivScalar(magB), c.DivScalar(magC)
	if d := math.Abs(au.Dot(bu)); d > tol.Perp {
		return nil, kernel.Invalid(kernel.KindEllipsoid, "A not perpendicular to B, |cos| %g", d)
	}
	if d := math.Abs(bu.Dot(cu)); d > tol.Perp {
		return nil, kernel.Invalid(kernel.KindEllipsoid, "B not perpendicular to C, |cos| %g", d)
	}
	if d := math.Abs(au.Dot(cu)); d > tol.Perp {
		return nil, kernel.Invalid(kernel.KindEllipsoid, "A not perpendicular to C, |cos| %g", d)
	}

	if math.Abs(magA-magB) < tol.Dist && math.Abs(magA-magC) < tol.Dist {
		return newSphere(v, magA), nil
	}

	r := rowsOf(au, bu, cu)
	sor := rowsOf(a.DivScalar(magA*magA), b.DivScalar(magB*magB), c.DivScalar(magC*magC))
	s2 := mat3{
		{X: 1 / (magA * magA)},
		{Y: 1 / (magB * magB)},
		{Z: 1 / (magC * magC)},
	}
	invRSSR := r.transpose().mulMat(s2).mulMat(r)

	// Per world axis, the extent is the length of the column of axis
	// components.
	ext := v3.Vec{
		X: math.Sqrt(a.X*a.X + b.X*b.X + c.X*c.X),
		Y: math.Sqrt(a.Y*a.Y + b.Y*b.Y + c.Y*c.Y),
		Z: math.Sqrt(a.Z*a.Z + b.Z*b.Z + c.Z*c.Z),
	}

	return &ellSolver{
		v:       v,
		sor:     sor,
		invRSSR: invRSSR,
		box:     sdf.Box3{Min: v.Sub(ext), Max: v.Add(ext)},
		radius:  math.Max(magA, math.Max(magB, magC)),
	}, nil
}

func (e *ellSolver) Kind() kernel.Kind { return kernel.KindEllipsoid }

func (e *ellSolver) Bounds() sdf.Box3 { return e.box }

func (e *ellSolver) BoundingSphere() (v3.Vec, float64) { return e.v, e.radius }

func (e *ellSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	pp := e.sor.mul(ray.Pt.Sub(e.v))
	dp := e.sor.mul(ray.Dir)
	return unitSphereShot(e, ray, pp, dp, dst)
}

func (e *ellSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	return kernel.Unit(e.invRSSR.mul(pt.Sub(e.v)))
}

// unitSphereShot intersects the canonical ray pp + t*dp with the unit
// sphere and appends the world-space segment. t is shared between
// canonical and world space because the map is linear.
func unitSphereShot(s kernel.Solver, ray kernel.Ray, pp, dp v3.Vec, dst []kernel.Segment) []kernel.Segment {
	t0, t1, ok := quadratic(dp.Dot(dp), pp.Dot(dp), pp.Dot(pp)-1, kernel.VDivideTol)
	if !ok {
		return dst
	}
	seg := kernel.MakeSegment(ray, t0, t1)
	seg.In.Normal = s.Normal(seg.In.Point, 0)
	seg.Out.Normal = s.Normal(seg.Out.Point, 0)
	return append(dst, seg)
}
