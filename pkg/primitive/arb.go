package primitive

import (
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// arbFaces lists the vertex indices of the six faces of an arb8.
var arbFaces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 4, 5, 1},
	{1, 5, 6, 2},
	{2, 6, 7, 3},
	{3, 7, 4, 0},
}

// plane is the half space n.x <= d, n unit and pointing outward.
type plane struct {
	n v3.Vec
	d float64
}

// arbSolver intersects rays with a convex polyhedron as the intersection
// of its face half spaces. Surf is the face index.
type arbSolver struct {
	planes []plane
	box    sdf.Box3
}

// Compile-time interface check.
var _ kernel.Solver = (*arbSolver)(nil)

func prepARB8(p ARB8Params, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	var pts [8]v3.Vec
	var centroid v3.Vec
	for i, pt := range p.Pts {
		pts[i] = xformPoint(xform, pt)
		centroid = centroid.Add(pts[i])
	}
	centroid = centroid.DivScalar(8)

	s := &arbSolver{box: kernel.BoxOf(pts[:]...)}
	for _, f := range arbFaces {
		pl, ok := facePlane(pts, f, tol)
		if !ok {
			// Collapsed to an edge or a point: arb4..arb7 have these.
			continue
		}
		if pl.n.Dot(centroid)-pl.d > 0 {
			pl.n = pl.n.MulScalar(-1)
			pl.d = -pl.d
		}
		for _, k := range f {
			if off := math.Abs(pl.n.Dot(pts[k]) - pl.d); off > tol.Dist {
				return nil, kernel.Invalid(kernel.KindARB8, "face %v not planar (%g off)", f, off)
			}
		}
		s.planes = append(s.planes, pl)
	}
	if len(s.planes) < 4 {
		return nil, kernel.Invalid(kernel.KindARB8, "only %d non-degenerate faces", len(s.planes))
	}
	for _, pl := range s.planes {
		if pl.n.Dot(centroid)-pl.d > -tol.Dist {
			return nil, kernel.Invalid(kernel.KindARB8, "zero volume")
		}
		for _, pt := range pts {
			if pl.n.Dot(pt)-pl.d > tol.Dist {
				return nil, kernel.Invalid(kernel.KindARB8, "not convex")
			}
		}
	}
	return s, nil
}

// facePlane fits a plane through the first three non-collinear distinct
// corners of face f.
func facePlane(pts [8]v3.Vec, f [4]int, tol kernel.Tol) (plane, bool) {
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			for c := b + 1; c < 4; c++ {
				pa, pb, pc := pts[f[a]], pts[f[b]], pts[f[c]]
				n := pb.Sub(pa).Cross(pc.Sub(pa))
				if n.Length() < tol.Dist*tol.Dist {
					continue
				}
				n = kernel.Unit(n)
				return plane{n: n, d: n.Dot(pa)}, true
			}
		}
	}
	return plane{}, false
}

func (s *arbSolver) Kind() kernel.Kind { return kernel.KindARB8 }

func (s *arbSolver) Bounds() sdf.Box3 { return s.box }

func (s *arbSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	near, far := math.Inf(-1), math.Inf(1)
	inSurf, outSurf := -1, -1
	for i, pl := range s.planes {
		dn := pl.n.Dot(ray.Dir)
		dist := pl.n.Dot(ray.Pt) - pl.d
		if math.Abs(dn) < kernel.VDivideTol {
			if dist > 0 {
				return dst
			}
			continue
		}
		t := -dist / dn
		if dn < 0 {
			if t > near {
				near, inSurf = t, i
			}
		} else if t < far {
			far, outSurf = t, i
		}
		if near >= far {
			return dst
		}
	}
	if inSurf < 0 || outSurf < 0 {
		return dst
	}
	seg := kernel.MakeSegment(ray, near, far)
	seg.In.Surf, seg.In.Normal = inSurf, s.planes[inSurf].n
	seg.Out.Surf, seg.Out.Normal = outSurf, s.planes[outSurf].n
	return append(dst, seg)
}

func (s *arbSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	if surf >= 0 && surf < len(s.planes) {
		return s.planes[surf].n
	}
	// Unknown face: use the plane pt lies closest to.
	best, bestD := 0, math.Inf(-1)
	for i, pl := range s.planes {
		if d := pl.n.Dot(pt) - pl.d; d > bestD {
			best, bestD = i, d
		}
	}
	return s.planes[best].n
}
