package primitive

import (
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// torSolver intersects rays with a torus. In canonical space the torus
// lies in the XY plane about the origin with major radius 1 and minor
// radius alpha, and the ray equation is a quartic in t.
type torSolver struct {
	v      v3.Vec
	h      v3.Vec
	r1, r2 float64
	alpha  float64
	sor    mat3 // rotate into the canonical frame and scale by 1/r1
	rot    mat3 // rotation only, rows (i, j, h)
	box    sdf.Box3
}

// Compile-time interface checks.
var (
	_ kernel.Solver     = (*torSolver)(nil)
	_ kernel.Sphereable = (*torSolver)(nil)
)

func prepTor(p TorParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	if p.R1 <= 0 || p.R2 <= 0 {
		return nil, kernel.Invalid(kernel.KindTorus, "radii must be positive (r1 %g, r2 %g)", p.R1, p.R2)
	}
	if p.R2 > p.R1 {
		return nil, kernel.Invalid(kernel.KindTorus, "minor radius %g exceeds major radius %g", p.R2, p.R1)
	}
	if p.H.Length() < tol.Dist {
		return nil, kernel.Invalid(kernel.KindTorus, "zero-length normal")
	}

	// A torus only survives a uniform scale.
	sx := xformDir(xform, v3.Vec{X: 1}).Length()
	sy := xformDir(xform, v3.Vec{Y: 1}).Length()
	sz := xformDir(xform, v3.Vec{Z: 1}).Length()
	if math.Abs(sx-sy) > tol.Perp*sx || math.Abs(sx-sz) > tol.Perp*sx {
		return nil, kernel.Invalid(kernel.KindTorus, "non-uniform placement scale (%g, %g, %g)", sx, sy, sz)
	}
	if sx < tol.Perp {
		return nil, kernel.Invalid(kernel.KindTorus, "degenerate placement scale %g", sx)
	}

	v := xformPoint(xform, p.V)
	h := kernel.Unit(xformDir(xform, p.H))
	r1, r2 := p.R1*sx, p.R2*sx

	i, j := orthoBasis(h)
	rot := rowsOf(i, j, h)
	sor := rowsOf(i.DivScalar(r1), j.DivScalar(r1), h.DivScalar(r1))

	// Extent along world axis k: r1 * |sin(angle(h, k))| + r2.
	ext := v3.Vec{
		X: r1*math.Sqrt(math.Max(0, 1-h.X*h.X)) + r2,
		Y: r1*math.Sqrt(math.Max(0, 1-h.Y*h.Y)) + r2,
		Z: r1*math.Sqrt(math.Max(0, 1-h.Z*h.Z)) + r2,
	}

	return &torSolver{
		v:     v,
		h:     h,
		r1:    r1,
		r2:    r2,
		alpha: r2 / r1,
		sor:   sor,
		rot:   rot,
		box:   sdf.Box3{Min: v.Sub(ext), Max: v.Add(ext)},
	}, nil
}

func (t *torSolver) Kind() kernel.Kind { return kernel.KindTorus }

func (t *torSolver) Bounds() sdf.Box3 { return t.box }

func (t *torSolver) BoundingSphere() (v3.Vec, float64) { return t.v, t.r1 + t.r2 }

func (t *torSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	cr := kernel.Ray{Pt: t.sor.mul(ray.Pt.Sub(t.v)), Dir: t.sor.mul(ray.Dir)}

	// Clip to the canonical bounding box; the quartic is then solved
	// relative to the entry point, which keeps its coefficients small.
	e := 1 + t.alpha
	cbox := sdf.Box3{Min: v3.Vec{X: -e, Y: -e, Z: -t.alpha}, Max: v3.Vec{X: e, Y: e, Z: t.alpha}}
	lo, hi, ok := kernel.Clip(cr, cbox, 1e-6)
	if !ok {
		return dst
	}

	p := cr.At(lo)
	d := cr.Dir
	a2 := d.Dot(d)
	a1 := 2 * p.Dot(d)
	a0 := p.Dot(p) + 1 - t.alpha*t.alpha
	b2 := d.X*d.X + d.Y*d.Y
	b1 := 2 * (p.X*d.X + p.Y*d.Y)
	b0 := p.X*p.X + p.Y*p.Y

	var q poly
	q.n = 4
	q.c[4] = a2 * a2
	q.c[3] = 2 * a2 * a1
	q.c[2] = a1*a1 + 2*a2*a0 - 4*b2
	q.c[1] = 2*a1*a0 - 4*b1
	q.c[0] = a0*a0 - 4*b0
	q, ok = q.monic()
	if !ok {
		return dst
	}

	var buf [maxDegree]float64
	roots := q.roots(0, hi-lo, buf[:0])
	if len(roots) != 2 && len(roots) != 4 {
		return dst
	}
	for k := 0; k+1 < len(roots); k += 2 {
		seg := kernel.MakeSegment(ray, lo+roots[k], lo+roots[k+1])
		seg.In.Normal = t.Normal(seg.In.Point, 0)
		seg.Out.Normal = t.Normal(seg.Out.Point, 0)
		dst = append(dst, seg)
	}
	return dst
}

// Normal is the gradient of (|X|^2 + 1 - alpha^2)^2 - 4(x^2 + y^2) at
// the canonical point, rotated back into world space.
func (t *torSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	x := t.sor.mul(pt.Sub(t.v))
	w := x.Dot(x) + 1 - t.alpha*t.alpha
	n := v3.Vec{X: x.X * (w - 2), Y: x.Y * (w - 2), Z: x.Z * w}
	return kernel.Unit(t.rot.transpose().mul(n))
}
