// Package sdfx builds implicit solids for the SDF primitive using the
// github.com/deadsy/sdfx CAD library, and meshes them with marching
// cubes.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/primitive"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 100

// Builder creates SDF primitive parameters. Cells is the marching cubes
// resolution along the longest bounding box axis used by ToMesh.
type Builder struct {
	Cells int
}

// New returns a Builder with the default mesh resolution.
func New() *Builder {
	return &Builder{Cells: defaultMeshCells}
}

func wrap(s sdf.SDF3) primitive.SDFParams {
	return primitive.SDFParams{Solid: s}
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin (0,0,0) so that placement translations work
// intuitively: placing it at (10,0,0) puts the corner at x=10.
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (b *Builder) Box(x, y, z float64) (primitive.SDFParams, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return primitive.SDFParams{}, fmt.Errorf("sdf box: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cylinder creates a cylinder along Z, centered at the origin.
func (b *Builder) Cylinder(height, radius float64) (primitive.SDFParams, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return primitive.SDFParams{}, fmt.Errorf("sdf cylinder: %w", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centered at the origin.
func (b *Builder) Sphere(radius float64) (primitive.SDFParams, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return primitive.SDFParams{}, fmt.Errorf("sdf sphere: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (b *Builder) Union(x, y primitive.SDFParams) primitive.SDFParams {
	return wrap(sdf.Union3D(x.Solid, y.Solid))
}

// Difference returns the difference x - y.
func (b *Builder) Difference(x, y primitive.SDFParams) primitive.SDFParams {
	return wrap(sdf.Difference3D(x.Solid, y.Solid))
}

// Intersection returns the intersection of two solids.
func (b *Builder) Intersection(x, y primitive.SDFParams) primitive.SDFParams {
	return wrap(sdf.Intersect3D(x.Solid, y.Solid))
}

// Translate moves a solid by (x, y, z).
func (b *Builder) Translate(s primitive.SDFParams, x, y, z float64) primitive.SDFParams {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(s.Solid, m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (b *Builder) Rotate(s primitive.SDFParams, x, y, z float64) primitive.SDFParams {
	return wrap(sdf.Transform3D(s.Solid, primitive.Place(v3.Vec{}, v3.Vec{X: x, Y: y, Z: z})))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (b *Builder) ToMesh(s primitive.SDFParams) (*kernel.Mesh, error) {
	if s.Solid == nil {
		return nil, errors.New("sdf mesh: no solid")
	}
	cells := b.Cells
	if cells <= 0 {
		cells = defaultMeshCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s.Solid, renderer)
	if len(triangles) == 0 {
		return nil, errors.New("sdf mesh: marching cubes produced no triangles")
	}

	mesh := &kernel.Mesh{}
	for _, tri := range triangles {
		mesh.AddTriangle(tri[0], tri[1], tri[2])
	}
	return mesh, nil
}
