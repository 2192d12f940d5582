package cmd

import (
	"fmt"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/rt"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Shoot a single ray and print its partitions.
func Shoot(ctx *cli.Context) error {
	setupLogging(ctx)

	path, err := sceneArg(ctx, 0)
	if err != nil {
		return err
	}
	origin, err := parseVec(ctx.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVec(ctx.String("dir"))
	if err != nil {
		return err
	}
	if dir.Length() < kernel.VDivideTol {
		return errZeroDir
	}

	sc, err := loadScene(path)
	if err != nil {
		return err
	}

	opts := rt.Options{
		FullLine: ctx.Bool("full-line"),
		OneHit:   ctx.Int("hits"),
		MaxDist:  ctx.Float64("max-dist"),
	}
	parts := rt.NewResource(0).Shoot(sc, kernel.NewRay(origin, dir), opts)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Region", "In", "In solid", "In normal", "Out", "Out solid", "Out normal", "Length"})
	for i, p := range parts {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			sc.Region(p.Region),
			fmt.Sprintf("%.6g", p.In.Dist),
			flipMark(solidName(sc, p.In.Soltab), p.In.Flip),
			formatVec(p.In.Normal),
			fmt.Sprintf("%.6g", p.Out.Dist),
			flipMark(solidName(sc, p.Out.Soltab), p.Out.Flip),
			formatVec(p.Out.Normal),
			fmt.Sprintf("%.6g", p.Len()),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "PARTITIONS", fmt.Sprintf("%d", len(parts))})
	table.Render()
	return nil
}

// flipMark tags a solid name whose normal was flipped by a subtraction.
func flipMark(name string, flip bool) string {
	if flip {
		return name + " (flipped)"
	}
	return name
}
