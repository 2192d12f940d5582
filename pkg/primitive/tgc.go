package primitive

import (
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Surf values of a TGC hit.
const (
	tgcBody = iota
	tgcBase
	tgcTop
)

// tgcSolver intersects rays with a truncated general cone. Prep finds
// the map that takes the solid to a canonical one: base ellipse the unit
// circle at z = 0, top ellipse at z = 1 with semi-axes 1+kA and 1+kB.
// The side is then x^2 Q^2 + y^2 R^2 = R^2 Q^2 with R = 1+kA*z and
// Q = 1+kB*z, which is a quadric when the two ends are similar.
type tgcSolver struct {
	v       v3.Vec
	m       mat3 // world offset -> canonical
	mt      mat3 // canonical gradient -> world normal
	n       v3.Vec
	kA, kB  float64
	quadric bool
	cbox    sdf.Box3 // canonical bounds
	box     sdf.Box3
}

// Compile-time interface checks.
var (
	_ kernel.Solver     = (*tgcSolver)(nil)
	_ kernel.Sphereable = (*tgcSolver)(nil)
)

func prepTGC(p TGCParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	v := xformPoint(xform, p.V)
	h := xformDir(xform, p.H)
	a, b := xformDir(xform, p.A), xformDir(xform, p.B)
	c, d := xformDir(xform, p.C), xformDir(xform, p.D)

	magH := h.Length()
	if magH < tol.Dist {
		return nil, kernel.Invalid(kernel.KindTGC, "zero-length H vector (%g)", magH)
	}
	magA, magB, magC, magD := a.Length(), b.Length(), c.Length(), d.Length()
	if magA < tol.Dist && magC < tol.Dist {
		return nil, kernel.Invalid(kernel.KindTGC, "A and C both zero length")
	}
	if magB < tol.Dist && magD < tol.Dist {
		return nil, kernel.Invalid(kernel.KindTGC, "B and D both zero length")
	}

	// The base must be a proper ellipse. A cone with its apex at V is
	// turned upside down.
	if magA < tol.Dist || magB < tol.Dist {
		if magC < tol.Dist || magD < tol.Dist {
			return nil, kernel.Invalid(kernel.KindTGC, "both end ellipses degenerate")
		}
		v, h = v.Add(h), h.MulScalar(-1)
		a, c, magA, magC = c, a, magC, magA
		b, d, magB, magD = d, b, magD, magB
	}

	au, bu := a.DivScalar(magA), b.DivScalar(magB)
	if cos := math.Abs(au.Dot(bu)); cos > tol.Perp {
		return nil, kernel.Invalid(kernel.KindTGC, "A not perpendicular to B, |cos| %g", cos)
	}
	if magC >= tol.Dist {
		if cos := au.Dot(c.DivScalar(magC)); 1-cos > tol.Perp {
			return nil, kernel.Invalid(kernel.KindTGC, "A and C not parallel, cos %g", cos)
		}
	}
	if magD >= tol.Dist {
		if cos := bu.Dot(d.DivScalar(magD)); 1-cos > tol.Perp {
			return nil, kernel.Invalid(kernel.KindTGC, "B and D not parallel, cos %g", cos)
		}
	}
	if sin := math.Abs(au.Cross(bu).Dot(h)) / magH; sin < tol.Perp {
		return nil, kernel.Invalid(kernel.KindTGC, "H lies in the plane of A and B")
	}

	un := kernel.Unit(h.Sub(au.MulScalar(h.Dot(au))).Sub(bu.MulScalar(h.Dot(bu))))
	r := rowsOf(au, bu, un)
	nh := r.mul(h)
	shear := mat3{
		{X: 1, Z: -nh.X / nh.Z},
		{Y: 1, Z: -nh.Y / nh.Z},
		{Z: 1},
	}
	scale := mat3{
		{X: 1 / magA},
		{Y: 1 / magB},
		{Z: 1 / nh.Z},
	}
	m := scale.mulMat(shear).mulMat(r)

	g := &tgcSolver{
		v:       v,
		m:       m,
		mt:      m.transpose(),
		n:       un,
		kA:      snapZero(magC/magA - 1),
		kB:      snapZero(magD/magB - 1),
		quadric: relDiff(magA*magD, magC*magB) < 1e-4,
	}
	ex, ey := math.Max(1, 1+g.kA), math.Max(1, 1+g.kB)
	g.cbox = sdf.Box3{Min: v3.Vec{X: -ex, Y: -ey}, Max: v3.Vec{X: ex, Y: ey, Z: 1}}

	top := v.Add(h)
	g.box = kernel.BoxOf(
		v.Add(a).Add(b), v.Add(a).Sub(b), v.Sub(a).Add(b), v.Sub(a).Sub(b),
		top.Add(c).Add(d), top.Add(c).Sub(d), top.Sub(c).Add(d), top.Sub(c).Sub(d),
	)
	return g, nil
}

func snapZero(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 0
	}
	return x
}

func relDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	return math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
}

func (g *tgcSolver) Kind() kernel.Kind { return kernel.KindTGC }

func (g *tgcSolver) Bounds() sdf.Box3 { return g.box }

func (g *tgcSolver) BoundingSphere() (v3.Vec, float64) {
	return g.box.Min.Add(g.box.Max).MulScalar(0.5), 0.5 * g.box.Max.Sub(g.box.Min).Length()
}

type tgcHit struct {
	t    float64
	surf int
}

func (g *tgcSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	// The map is linear, so canonical and world rays share t.
	cr := kernel.Ray{Pt: g.m.mul(ray.Pt.Sub(g.v)), Dir: g.m.mul(ray.Dir)}
	lo, hi, ok := kernel.Clip(cr, g.cbox, 1e-6)
	if !ok {
		return dst
	}
	p, d := cr.At(lo), cr.Dir

	var buf [6]tgcHit
	hits := buf[:0]
	var rbuf [maxDegree]float64
	for _, s := range g.side(p, d).trim().roots(0, hi-lo, rbuf[:0]) {
		if z := p.Z + s*d.Z; z > 0 && z < 1 {
			hits = append(hits, tgcHit{t: lo + s, surf: tgcBody})
		}
	}
	if math.Abs(d.Z) > kernel.VDivideTol {
		s := -p.Z / d.Z
		if x, y := p.X+s*d.X, p.Y+s*d.Y; x*x+y*y <= 1 {
			hits = append(hits, tgcHit{t: lo + s, surf: tgcBase})
		}
		s = (1 - p.Z) / d.Z
		if g.inTop(p.X+s*d.X, p.Y+s*d.Y) {
			hits = append(hits, tgcHit{t: lo + s, surf: tgcTop})
		}
	}

	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].t < hits[j-1].t; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits)%2 == 1 {
		hits = dropRimHit(hits, tol.Dist)
	}
	if len(hits)%2 == 1 {
		return dst
	}
	for i := 0; i+1 < len(hits); i += 2 {
		seg := kernel.MakeSegment(ray, hits[i].t, hits[i+1].t)
		seg.In.Surf, seg.Out.Surf = hits[i].surf, hits[i+1].surf
		seg.In.Normal = g.Normal(seg.In.Point, seg.In.Surf)
		seg.Out.Normal = g.Normal(seg.Out.Point, seg.Out.Surf)
		dst = append(dst, seg)
	}
	return dst
}

// side returns the canonical side equation along p + s*d.
func (g *tgcSolver) side(p, d v3.Vec) poly {
	x := linear(p.X, d.X)
	y := linear(p.Y, d.Y)
	r := linear(1+g.kA*p.Z, g.kA*d.Z)
	x2, y2, r2 := x.mul(x), y.mul(y), r.mul(r)
	if g.quadric {
		return x2.add(y2).sub(r2)
	}
	q := linear(1+g.kB*p.Z, g.kB*d.Z)
	q2 := q.mul(q)
	return x2.mul(q2).add(y2.mul(r2)).sub(r2.mul(q2))
}

func (g *tgcSolver) inTop(x, y float64) bool {
	ra, rb := 1+g.kA, 1+g.kB
	if ra < 1e-9 || rb < 1e-9 {
		return false
	}
	x, y = x/ra, y/rb
	return x*x+y*y <= 1
}

// dropRimHit removes one of two hits closer than dist, a ray through the
// rim that found both the side and a cap. The cap hit is kept.
func dropRimHit(hits []tgcHit, dist float64) []tgcHit {
	for i := 1; i < len(hits); i++ {
		if hits[i].t-hits[i-1].t > dist {
			continue
		}
		k := i
		if hits[i-1].surf == tgcBody {
			k = i - 1
		}
		return append(hits[:k], hits[k+1:]...)
	}
	return hits
}

func (g *tgcSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	switch surf {
	case tgcTop:
		return g.n
	case tgcBase:
		return g.n.MulScalar(-1)
	}
	c := g.m.mul(pt.Sub(g.v))
	r := 1 + g.kA*c.Z
	q := 1 + g.kB*c.Z
	grad := v3.Vec{
		X: c.X * q * q,
		Y: c.Y * r * r,
		Z: (c.X*c.X-r*r)*q*g.kB + (c.Y*c.Y-q*q)*r*g.kA,
	}
	return kernel.Unit(g.mt.mul(grad))
}
