package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle shell. All arrays are flat: vertices has 3 floats
// per vertex (x,y,z), normals has 3 floats per vertex, indices has 3
// uint32s per triangle. Tessellators produce it and the BOT primitive
// consumes it.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // solid the shell was built from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Triangle returns the corners of triangle i in index order.
func (m *Mesh) Triangle(i int) (a, b, c v3.Vec) {
	return m.Vertex(int(m.Indices[3*i])),
		m.Vertex(int(m.Indices[3*i+1])),
		m.Vertex(int(m.Indices[3*i+2]))
}

// AddTriangle appends a triangle with a flat normal, unshared vertices.
func (m *Mesh) AddTriangle(a, b, c v3.Vec) {
	n := Unit(b.Sub(a).Cross(c.Sub(a)))
	base := uint32(m.VertexCount())
	for _, p := range [3]v3.Vec{a, b, c} {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	m.Indices = append(m.Indices, base, base+1, base+2)
}

// BoundingBox returns the box holding every vertex.
func (m *Mesh) BoundingBox() sdf.Box3 {
	pts := make([]v3.Vec, m.VertexCount())
	for i := range pts {
		pts[i] = m.Vertex(i)
	}
	return BoxOf(pts...)
}
