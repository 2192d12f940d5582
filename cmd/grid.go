package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/rt"
	"github.com/chazu/rayweave/pkg/stats"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// gridRays lays an n x n orthographic grid of rays over the face of box
// that looks down the given axis, one ray per cell center.
func gridRays(box sdf.Box3, axis string, n int) ([]kernel.Ray, error) {
	if n < 1 {
		return nil, fmt.Errorf("grid size must be positive, got %d", n)
	}
	// (u, v, w) -> world, with w along the viewing axis.
	var world func(u, v, w float64) v3.Vec
	var lo, hi v3.Vec
	switch axis {
	case "x":
		world = func(u, v, w float64) v3.Vec { return v3.Vec{X: w, Y: u, Z: v} }
		lo = v3.Vec{X: box.Min.Y, Y: box.Min.Z, Z: box.Min.X}
		hi = v3.Vec{X: box.Max.Y, Y: box.Max.Z, Z: box.Max.X}
	case "y":
		world = func(u, v, w float64) v3.Vec { return v3.Vec{X: u, Y: w, Z: v} }
		lo = v3.Vec{X: box.Min.X, Y: box.Min.Z, Z: box.Min.Y}
		hi = v3.Vec{X: box.Max.X, Y: box.Max.Z, Z: box.Max.Y}
	case "z":
		world = func(u, v, w float64) v3.Vec { return v3.Vec{X: u, Y: v, Z: w} }
		lo, hi = box.Min, box.Max
	default:
		return nil, fmt.Errorf("unknown axis %q, expected x, y or z", axis)
	}

	start := hi.Z + 1
	dir := world(0, 0, -1)
	du := (hi.X - lo.X) / float64(n)
	dv := (hi.Y - lo.Y) / float64(n)
	rays := make([]kernel.Ray, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			u := lo.X + (float64(i)+0.5)*du
			v := lo.Y + (float64(j)+0.5)*dv
			rays = append(rays, kernel.NewRay(world(u, v, start), dir))
		}
	}
	return rays, nil
}

// regionSpan is the material one ray saw in one region.
type regionSpan struct {
	region kernel.RegionID
	length float64
}

// Grid shoots an orthographic grid over the scene in parallel and prints
// hit statistics.
func Grid(ctx *cli.Context) error {
	setupLogging(ctx)

	path, err := sceneArg(ctx, 0)
	if err != nil {
		return err
	}
	sc, err := loadScene(path)
	if err != nil {
		return err
	}
	rays, err := gridRays(sc.Bounds(), ctx.String("axis"), ctx.Int("size"))
	if err != nil {
		return err
	}

	counters := stats.New(sc.SolidNames())
	opts := rt.Options{Hook: counters, OneHit: ctx.Int("hits")}

	// Each callback writes only its own slot.
	spans := make([][]regionSpan, len(rays))
	begin := time.Now()
	err = rt.ShootBatch(context.Background(), sc, rays, ctx.Int("workers"), opts, func(i int, parts []rt.Partition) error {
		for _, p := range parts {
			spans[i] = append(spans[i], regionSpan{region: p.Region, length: p.Len()})
		}
		return nil
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(begin)

	snap := counters.Snapshot()
	var hitRays int
	byRegion := make([]struct {
		rays  int
		total float64
	}, len(sc.Regions()))
	for _, rs := range spans {
		if len(rs) > 0 {
			hitRays++
		}
		seen := make(map[kernel.RegionID]bool, len(rs))
		for _, s := range rs {
			if s.region < 0 || int(s.region) >= len(byRegion) {
				continue
			}
			byRegion[s.region].total += s.length
			if !seen[s.region] {
				byRegion[s.region].rays++
				seen[s.region] = true
			}
		}
	}

	w := ctx.App.Writer
	summary := tablewriter.NewWriter(w)
	summary.SetAutoFormatHeaders(false)
	summary.SetHeader([]string{"Rays", "Hit rays", "Partitions", "Partitions/ray", "Violations", "Time", "Rays/s"})
	summary.Append([]string{
		fmt.Sprintf("%d", snap.Rays),
		fmt.Sprintf("%d", hitRays),
		fmt.Sprintf("%d", snap.Partitions),
		fmt.Sprintf("%.3f", snap.PartitionsPerRay()),
		fmt.Sprintf("%d", snap.Violations),
		elapsed.String(),
		fmt.Sprintf("%.0f", float64(snap.Rays)/elapsed.Seconds()),
	})
	summary.Render()

	solids := tablewriter.NewWriter(w)
	solids.SetAutoFormatHeaders(false)
	solids.SetHeader([]string{"Solid", "Shots", "Segments"})
	for _, s := range snap.Solids {
		solids.Append([]string{s.Name, fmt.Sprintf("%d", s.Shots), fmt.Sprintf("%d", s.Segments)})
	}
	solids.Render()

	regions := tablewriter.NewWriter(w)
	regions.SetAutoFormatHeaders(false)
	regions.SetHeader([]string{"Region", "Rays", "Total length", "Mean length"})
	for id, name := range sc.Regions() {
		r := byRegion[id]
		mean := 0.0
		if r.rays > 0 {
			mean = r.total / float64(r.rays)
		}
		regions.Append([]string{name, fmt.Sprintf("%d", r.rays), fmt.Sprintf("%.4g", r.total), fmt.Sprintf("%.4g", mean)})
	}
	regions.Render()

	logger.Infof("shot %d rays in %s", len(rays), elapsed)
	return nil
}
