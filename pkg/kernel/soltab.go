package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sphereable is implemented by solvers that know a tighter bounding
// sphere than the one enclosing their bounding box.
type Sphereable interface {
	BoundingSphere() (center v3.Vec, radius float64)
}

// Soltab is one prepped primitive instance in a scene. It is built once
// and never modified while rays are being shot.
type Soltab struct {
	ID     SoltabID
	Name   string
	Kind   Kind
	Solver Solver

	Box    sdf.Box3
	Center v3.Vec
	Radius float64
}

// NewSoltab wraps a prepped solver, deriving its bounding volumes.
func NewSoltab(id SoltabID, name string, s Solver) *Soltab {
	st := &Soltab{
		ID:     id,
		Name:   name,
		Kind:   s.Kind(),
		Solver: s,
		Box:    s.Bounds(),
	}
	if bs, ok := s.(Sphereable); ok {
		st.Center, st.Radius = bs.BoundingSphere()
	} else {
		st.Center = st.Box.Min.Add(st.Box.Max).MulScalar(0.5)
		st.Radius = st.Box.Max.Sub(st.Box.Min).Length() * 0.5
	}
	return st
}

// Hits reports whether ray can touch the solid at all: its closest
// approach to the bounding sphere center must be within the radius, and
// it must pass through the bounding box. near and far bracket every hit
// the solver can report.
func (st *Soltab) Hits(ray Ray, tol Tol) (near, far float64, ok bool) {
	// Closest approach, measured with Dir's own scale.
	oc := st.Center.Sub(ray.Pt)
	dd := ray.Dir.Dot(ray.Dir)
	if dd < VDivideTol {
		return 0, 0, false
	}
	t := oc.Dot(ray.Dir) / dd
	miss := oc.Sub(ray.Dir.MulScalar(t)).Length()
	if miss > st.Radius+tol.Dist {
		return 0, 0, false
	}
	return Clip(ray, st.Box, tol.Dist)
}

// BoxOf returns the smallest box holding pts.
func BoxOf(pts ...v3.Vec) sdf.Box3 {
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range pts {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return sdf.Box3{Min: lo, Max: hi}
}
