package cmd

import (
	"fmt"

	"github.com/chazu/rayweave/pkg/tessellate"
	"github.com/urfave/cli"
)

// Facetize writes the tessellation of one placed solid as STL.
func Facetize(ctx *cli.Context) error {
	setupLogging(ctx)

	path, err := sceneArg(ctx, 2)
	if err != nil {
		return err
	}
	name, out := ctx.Args().Get(1), ctx.Args().Get(2)

	spec, err := loadSpec(path)
	if err != nil {
		return err
	}
	for _, s := range spec.Solids {
		if s.Name != name {
			continue
		}
		mesh, err := tessellate.Solid(s.Params, s.Placement, ctx.Int("detail"))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := tessellate.WriteSTL(out, mesh); err != nil {
			return err
		}
		logger.Noticef("wrote %s: %d triangles", out, mesh.TriangleCount())
		return nil
	}
	return fmt.Errorf("%s: no solid named %q", path, name)
}
