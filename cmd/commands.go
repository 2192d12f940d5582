package cmd

import "github.com/urfave/cli"

// Commands lists the subcommands of the rayweave binary.
func Commands() []cli.Command {
	return []cli.Command{
		{
			Name:  "shoot",
			Usage: "shoot one ray and print its partitions",
			Description: `
Evaluate a scene file, build it and shoot a single ray. Each partition is
printed with the solids and normals of its entry and exit points.`,
			ArgsUsage: "scene_file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "origin, o",
					Value: "0,0,0",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir, d",
					Value: "1,0,0",
					Usage: "ray direction as x,y,z",
				},
				cli.BoolFlag{
					Name:  "full-line",
					Usage: "keep partitions behind the ray origin",
				},
				cli.IntFlag{
					Name:  "hits",
					Usage: "stop after this many hit points, 0 for all",
				},
				cli.Float64Flag{
					Name:  "max-dist",
					Usage: "ignore material starting beyond this distance, 0 for no limit",
				},
			},
			Action: Shoot,
		},
		{
			Name:  "grid",
			Usage: "shoot an orthographic grid of rays and print statistics",
			Description: `
Shoot an N x N grid of parallel rays across the scene bounds in parallel and
report per-solid and per-region counts.`,
			ArgsUsage: "scene_file",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "size, n",
					Value: 256,
					Usage: "rays per grid side",
				},
				cli.StringFlag{
					Name:  "axis",
					Value: "z",
					Usage: "view down this axis: x, y or z",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Usage: "worker goroutines, 0 for one per cpu",
				},
				cli.IntFlag{
					Name:  "hits",
					Usage: "stop each ray after this many hit points, 0 for all",
				},
			},
			Action: Grid,
		},
		{
			Name:      "check",
			Usage:     "validate a scene and report solids that fail to prep",
			ArgsUsage: "scene_file",
			Action:    Check,
		},
		{
			Name:      "facetize",
			Usage:     "write the tessellation of one solid as STL",
			ArgsUsage: "scene_file solid_name out.stl",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "detail",
					Value: 3,
					Usage: "tessellation detail",
				},
			},
			Action: Facetize,
		},
	}
}
