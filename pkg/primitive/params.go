// Package primitive implements the per-type ray intersection solvers.
// Each primitive kind has a raw parameter block (a Params variant), a
// prep step that validates it under a placement transform, and a Solver
// that answers Shot and Normal queries against the prepped, immutable
// state.
package primitive

import (
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/fogleman/fauxgl"
)

// Params is the raw parameter block for one primitive. The set of
// implementations is closed; see the concrete types below.
type Params interface {
	Kind() kernel.Kind
	params()
}

// SphereParams is a sphere of Radius about Center.
type SphereParams struct {
	Center v3.Vec
	Radius float64
}

// EllParams is an ellipsoid: center V and three mutually perpendicular
// semi-axis vectors.
type EllParams struct {
	V, A, B, C v3.Vec
}

// TGCParams is a truncated general cone: base ellipse at V with
// perpendicular semi-axes A and B, top ellipse at V+H with semi-axes C
// and D parallel to A and B.
type TGCParams struct {
	V, H, A, B, C, D v3.Vec
}

// TorParams is a torus centered at V with axis H, major radius R1 and
// minor (tube) radius R2.
type TorParams struct {
	V, H   v3.Vec
	R1, R2 float64
}

// ARB8Params is a convex polyhedron given by eight vertices. Points 0-3
// form one face and 4-7 the opposite face, with point i+4 joined to i.
// Repeated points describe the degenerate arb4..arb7 shapes.
type ARB8Params struct {
	Pts [8]v3.Vec
}

// Orientation says how BOT triangle winding relates to the outside.
type Orientation int

const (
	Unoriented Orientation = iota // winding carries no meaning
	CCW                           // counter-clockwise seen from outside
	CW                            // clockwise seen from outside
)

func (o Orientation) String() string {
	switch o {
	case CCW:
		return "ccw"
	case CW:
		return "cw"
	default:
		return "unoriented"
	}
}

// BOTMode says how a BOT's triangles bound its volume.
type BOTMode int

const (
	BOTSolid      BOTMode = iota // closed shell
	BOTSurface                   // zero-thickness surface
	BOTPlate                     // per-face thickness measured along the face normal
	BOTPlateNoCos                // per-face thickness measured along the ray
)

func (m BOTMode) String() string {
	switch m {
	case BOTSurface:
		return "surface"
	case BOTPlate:
		return "plate"
	case BOTPlateNoCos:
		return "plate_nocos"
	default:
		return "solid"
	}
}

// BOTParams is a triangle mesh. In the default solid mode it is a closed
// shell; the plate modes give every triangle a thickness instead.
type BOTParams struct {
	Mesh        *kernel.Mesh
	Orientation Orientation
	Mode        BOTMode

	// Thickness holds one plate thickness per mesh triangle, in world
	// units. Plate modes require it.
	Thickness []float64

	// FaceAppend marks triangles whose plate starts at the surface and
	// extends along the ray. Unmarked plates are centered on it.
	FaceAppend []bool
}

// SDFParams is an implicit solid.
type SDFParams struct {
	Solid sdf.SDF3
}

func (SphereParams) Kind() kernel.Kind { return kernel.KindSphere }
func (EllParams) Kind() kernel.Kind    { return kernel.KindEllipsoid }
func (TorParams) Kind() kernel.Kind    { return kernel.KindTorus }
func (ARB8Params) Kind() kernel.Kind   { return kernel.KindARB8 }
func (BOTParams) Kind() kernel.Kind    { return kernel.KindBOT }
func (TGCParams) Kind() kernel.Kind    { return kernel.KindTGC }
func (SDFParams) Kind() kernel.Kind    { return kernel.KindSDF }

func (SphereParams) params() {}
func (EllParams) params()    {}
func (TorParams) params()    {}
func (ARB8Params) params()   {}
func (BOTParams) params()    {}
func (TGCParams) params()    {}
func (SDFParams) params()    {}

// RPP returns the arb8 for the axis-aligned box between min and max.
func RPP(min, max v3.Vec) ARB8Params {
	return ARB8Params{Pts: [8]v3.Vec{
		{X: min.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: max.Y, Z: max.Z},
		{X: min.X, Y: max.Y, Z: max.Z},
	}}
}

// RCC returns the right circular cylinder of radius r standing on base
// along height.
func RCC(base, height v3.Vec, r float64) TGCParams {
	return TRC(base, height, r, r)
}

// TRC returns the truncated right cone with base radius r1 and top
// radius r2. An r2 of zero gives a cone with its apex at base+height.
func TRC(base, height v3.Vec, r1, r2 float64) TGCParams {
	i, j := orthoBasis(kernel.Unit(height))
	return TGCParams{
		V: base, H: height,
		A: i.MulScalar(r1), B: j.MulScalar(r1),
		C: i.MulScalar(r2), D: j.MulScalar(r2),
	}
}

// FromFauxgl converts a fauxgl mesh, e.g. one loaded from an STL file,
// into BOT parameters. fauxgl writes counter-clockwise outward faces.
func FromFauxgl(m *fauxgl.Mesh) BOTParams {
	km := &kernel.Mesh{}
	for _, t := range m.Triangles {
		km.AddTriangle(fromFV(t.V1.Position), fromFV(t.V2.Position), fromFV(t.V3.Position))
	}
	return BOTParams{Mesh: km, Orientation: CCW}
}

func fromFV(v fauxgl.Vector) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
