package primitive

import (
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	sdfMaxSteps   = 4096 // sphere tracing steps per ray
	sdfBisections = 60
)

// sdfSolver intersects rays with an implicit solid by sphere tracing
// its signed distance field and bisecting every sign change.
type sdfSolver struct {
	s   sdf.SDF3
	box sdf.Box3
	h   float64 // central difference step for normals
}

// Compile-time interface check.
var _ kernel.Solver = (*sdfSolver)(nil)

func prepSDF(p SDFParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	if p.Solid == nil {
		return nil, kernel.Invalid(kernel.KindSDF, "no solid")
	}
	s := p.Solid
	if xform != sdf.Identity3d() {
		s = sdf.Transform3D(s, xform)
	}
	box := s.BoundingBox()
	size := box.Max.Sub(box.Min)
	if size.X < tol.Dist || size.Y < tol.Dist || size.Z < tol.Dist {
		return nil, kernel.Invalid(kernel.KindSDF, "degenerate bounds %v", size)
	}
	diag := size.Length()
	return &sdfSolver{s: s, box: box, h: math.Max(1e-7*diag, 1e-9)}, nil
}

func (s *sdfSolver) Kind() kernel.Kind { return kernel.KindSDF }

func (s *sdfSolver) Bounds() sdf.Box3 { return s.box }

func (s *sdfSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	lo, hi, ok := kernel.Clip(ray, s.box, 2*tol.Dist)
	if !ok {
		return dst
	}
	speed := ray.Dir.Length()
	if speed < kernel.VDivideTol {
		return dst
	}
	minStep := 0.5 * tol.Dist / speed

	t := lo
	d := s.s.Evaluate(ray.At(t))
	inside := d < 0
	tIn := lo
	for step := 0; step < sdfMaxSteps && t < hi; step++ {
		adv := math.Max(math.Abs(d)/speed, minStep)
		next := math.Min(t+adv, hi)
		dn := s.s.Evaluate(ray.At(next))
		if (dn < 0) != inside {
			root := s.bisect(ray, t, next, inside)
			if inside {
				dst = s.appendSeg(ray, tIn, root, dst)
			} else {
				tIn = root
			}
			inside = !inside
		}
		t, d = next, dn
	}
	if inside {
		// A thin solid can use up the step budget before the march
		// reaches hi. Close the segment at the far crossing, or at hi
		// when the solid runs past the bounds.
		if t < hi && s.s.Evaluate(ray.At(hi)) >= 0 {
			t = s.bisect(ray, t, hi, true)
		} else {
			t = hi
		}
		dst = s.appendSeg(ray, tIn, t, dst)
	}
	return dst
}

// bisect narrows the surface crossing between a and b, where a is on
// the inside iff fromInside.
func (s *sdfSolver) bisect(ray kernel.Ray, a, b float64, fromInside bool) float64 {
	for i := 0; i < sdfBisections; i++ {
		m := 0.5 * (a + b)
		if (s.s.Evaluate(ray.At(m)) < 0) == fromInside {
			a = m
		} else {
			b = m
		}
	}
	return 0.5 * (a + b)
}

func (s *sdfSolver) appendSeg(ray kernel.Ray, tIn, tOut float64, dst []kernel.Segment) []kernel.Segment {
	if tOut <= tIn {
		return dst
	}
	seg := kernel.MakeSegment(ray, tIn, tOut)
	seg.In.Normal = s.Normal(seg.In.Point, 0)
	seg.Out.Normal = s.Normal(seg.Out.Point, 0)
	return append(dst, seg)
}

// Normal is the normalized central difference gradient of the field.
func (s *sdfSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	h := s.h
	dx := v3.Vec{X: h}
	dy := v3.Vec{Y: h}
	dz := v3.Vec{Z: h}
	g := v3.Vec{
		X: s.s.Evaluate(pt.Add(dx)) - s.s.Evaluate(pt.Sub(dx)),
		Y: s.s.Evaluate(pt.Add(dy)) - s.s.Evaluate(pt.Sub(dy)),
		Z: s.s.Evaluate(pt.Add(dz)) - s.s.Evaluate(pt.Sub(dz)),
	}
	return kernel.Unit(g)
}
