// Package tessellate facetizes primitives into triangle shells. A shell
// can be written out as STL or fed back into a scene as a BOT solid.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/kernel/sdfx"
	"github.com/chazu/rayweave/pkg/primitive"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/fogleman/fauxgl"
)

// DefaultDetail is used when a caller passes detail <= 0.
const DefaultDetail = 3

// arbFaces lists the vertex indices of the six faces of an arb8, split
// into two triangles each.
var arbFaces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 4, 5, 1},
	{1, 5, 6, 2},
	{2, 6, 7, 3},
	{3, 7, 4, 0},
}

// Solid facetizes p placed by placement. detail scales the resolution:
// the subdivision level of spheres and ellipsoids, a multiple of the
// segment count of tori and cones and of the marching cubes cells of SDF
// solids.
// Parameters are validated the same way scene building does; a zero
// placement is the identity.
func Solid(p primitive.Params, placement sdf.M44, detail int) (*kernel.Mesh, error) {
	if detail <= 0 {
		detail = DefaultDetail
	}
	if placement == (sdf.M44{}) {
		placement = sdf.Identity3d()
	}
	if _, err := primitive.Prep("", p, placement, kernel.DefaultTol()); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}

	var mesh *kernel.Mesh
	switch data := p.(type) {
	case primitive.SphereParams:
		r := data.Radius
		mesh = ellipsoid(data.Center, v3.Vec{X: r}, v3.Vec{Y: r}, v3.Vec{Z: r}, detail)
	case primitive.EllParams:
		mesh = ellipsoid(data.V, data.A, data.B, data.C, detail)
	case primitive.TorParams:
		mesh = torus(data, detail)
	case primitive.TGCParams:
		mesh = tgc(data, detail)
	case primitive.ARB8Params:
		mesh = arb8(data)
	case primitive.BOTParams:
		if data.Mode != primitive.BOTSolid {
			return nil, fmt.Errorf("tessellate: %s mode bot does not bound a volume", data.Mode)
		}
		mesh = copyMesh(data.Mesh)
	case primitive.SDFParams:
		return sdfMesh(data, placement, detail)
	default:
		return nil, fmt.Errorf("tessellate: unsupported parameter type %T", p)
	}
	return place(mesh, placement), nil
}

// Facetize is Solid wrapped as BOT parameters with outward
// counter-clockwise winding.
func Facetize(p primitive.Params, placement sdf.M44, detail int) (primitive.BOTParams, error) {
	mesh, err := Solid(p, placement, detail)
	if err != nil {
		return primitive.BOTParams{}, err
	}
	return primitive.BOTParams{Mesh: mesh, Orientation: primitive.CCW}, nil
}

// ellipsoid maps fauxgl's unit icosphere through center + x·a + y·b + z·c.
func ellipsoid(center, a, b, c v3.Vec, detail int) *kernel.Mesh {
	unit := fauxgl.NewSphere(detail)
	mesh := &kernel.Mesh{}
	for _, t := range unit.Triangles {
		var pts [3]v3.Vec
		for i, fv := range [3]fauxgl.Vector{t.V1.Position, t.V2.Position, t.V3.Position} {
			pts[i] = center.Add(a.MulScalar(fv.X)).Add(b.MulScalar(fv.Y)).Add(c.MulScalar(fv.Z))
		}
		addOutward(mesh, center, pts[0], pts[1], pts[2])
	}
	return mesh
}

// torus builds a parametric grid of quads. With e1, e2 and H right
// handed, the (u, v) quad order winds counter-clockwise from outside.
func torus(p primitive.TorParams, detail int) *kernel.Mesh {
	h := kernel.Unit(p.H)
	e1 := kernel.Unit(h.Cross(v3.Vec{X: 1}))
	if e1.Length() < 0.5 || math.Abs(h.X) > 0.9 {
		e1 = kernel.Unit(h.Cross(v3.Vec{Y: 1}))
	}
	e2 := h.Cross(e1)

	nu, nv := 12*detail, 6*detail
	at := func(i, j int) v3.Vec {
		u := 2 * math.Pi * float64(i%nu) / float64(nu)
		v := 2 * math.Pi * float64(j%nv) / float64(nv)
		radial := e1.MulScalar(math.Cos(u)).Add(e2.MulScalar(math.Sin(u)))
		return p.V.Add(radial.MulScalar(p.R1 + p.R2*math.Cos(v))).Add(h.MulScalar(p.R2 * math.Sin(v)))
	}

	mesh := &kernel.Mesh{}
	for i := 0; i < nu; i++ {
		for j := 0; j < nv; j++ {
			p00, p10, p11, p01 := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			mesh.AddTriangle(p00, p10, p11)
			mesh.AddTriangle(p00, p11, p01)
		}
	}
	return mesh
}

// tgc joins the base and top ellipses with a band of quads and closes
// both ends with fans. A collapsed end leaves only slivers, which
// addOutward drops.
func tgc(p primitive.TGCParams, detail int) *kernel.Mesh {
	n := 16 * detail
	top := p.V.Add(p.H)
	inside := p.V.Add(p.H.MulScalar(0.5))
	at := func(center, a, b v3.Vec, i int) v3.Vec {
		u := 2 * math.Pi * float64(i%n) / float64(n)
		return center.Add(a.MulScalar(math.Cos(u))).Add(b.MulScalar(math.Sin(u)))
	}

	mesh := &kernel.Mesh{}
	for i := 0; i < n; i++ {
		b0, b1 := at(p.V, p.A, p.B, i), at(p.V, p.A, p.B, i+1)
		t0, t1 := at(top, p.C, p.D, i), at(top, p.C, p.D, i+1)
		addOutward(mesh, inside, b0, b1, t1)
		addOutward(mesh, inside, b0, t1, t0)
		addOutward(mesh, inside, p.V, b1, b0)
		addOutward(mesh, inside, top, t0, t1)
	}
	return mesh
}

// arb8 splits each face into two triangles, skipping the collapsed ones
// of degenerate arbs, and winds them away from the centroid.
func arb8(p primitive.ARB8Params) *kernel.Mesh {
	var centroid v3.Vec
	for _, q := range p.Pts {
		centroid = centroid.Add(q)
	}
	centroid = centroid.MulScalar(1.0 / 8)

	mesh := &kernel.Mesh{}
	for _, f := range arbFaces {
		a, b, c, d := p.Pts[f[0]], p.Pts[f[1]], p.Pts[f[2]], p.Pts[f[3]]
		addOutward(mesh, centroid, a, b, c)
		addOutward(mesh, centroid, a, c, d)
	}
	return mesh
}

// addOutward adds triangle abc wound so that its normal points away from
// inside, skipping slivers.
func addOutward(mesh *kernel.Mesh, inside, a, b, c v3.Vec) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Length() < 1e-12 {
		return
	}
	mid := a.Add(b).Add(c).MulScalar(1.0 / 3)
	if n.Dot(mid.Sub(inside)) < 0 {
		b, c = c, b
	}
	mesh.AddTriangle(a, b, c)
}

func copyMesh(m *kernel.Mesh) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
		Normals:  append([]float32(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		Name:     m.Name,
	}
}

func sdfMesh(p primitive.SDFParams, placement sdf.M44, detail int) (*kernel.Mesh, error) {
	if placement != sdf.Identity3d() {
		p = primitive.SDFParams{Solid: sdf.Transform3D(p.Solid, placement)}
	}
	b := sdfx.New()
	b.Cells = 20 * detail
	mesh, err := b.ToMesh(p)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return mesh, nil
}

// place applies placement to every vertex. A mirroring placement turns
// the winding inside out, so triangles are then reversed.
func place(m *kernel.Mesh, placement sdf.M44) *kernel.Mesh {
	if placement == sdf.Identity3d() {
		return m
	}
	o := placement.MulPosition(v3.Vec{})
	ex := placement.MulPosition(v3.Vec{X: 1}).Sub(o)
	ey := placement.MulPosition(v3.Vec{Y: 1}).Sub(o)
	ez := placement.MulPosition(v3.Vec{Z: 1}).Sub(o)
	mirror := ex.Dot(ey.Cross(ez)) < 0

	out := &kernel.Mesh{Name: m.Name}
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		a, b, c = placement.MulPosition(a), placement.MulPosition(b), placement.MulPosition(c)
		if mirror {
			b, c = c, b
		}
		out.AddTriangle(a, b, c)
	}
	return out
}
