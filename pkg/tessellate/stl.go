package tessellate

import (
	"fmt"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/primitive"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/fogleman/fauxgl"
)

// WriteSTL saves m as a binary STL file.
func WriteSTL(path string, m *kernel.Mesh) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("write %s: empty mesh", path)
	}
	tris := make([]*fauxgl.Triangle, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		tris = append(tris, fauxgl.NewTriangleForPoints(toFV(a), toFV(b), toFV(c)))
	}
	if err := fauxgl.SaveSTL(path, fauxgl.NewTriangleMesh(tris)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadSTL reads an STL file as a BOT shell. STL facets wind
// counter-clockwise seen from outside.
func LoadSTL(path string) (primitive.BOTParams, error) {
	m, err := fauxgl.LoadSTL(path)
	if err != nil {
		return primitive.BOTParams{}, fmt.Errorf("load %s: %w", path, err)
	}
	return primitive.FromFauxgl(m), nil
}

func toFV(v v3.Vec) fauxgl.Vector {
	return fauxgl.Vector{X: v.X, Y: v.Y, Z: v.Z}
}
