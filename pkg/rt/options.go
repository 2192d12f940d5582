package rt

import "github.com/chazu/rayweave/pkg/kernel"

// Options tune a single shot. The zero value returns every partition in
// front of the ray origin.
type Options struct {
	// FullLine keeps partitions lying entirely behind the origin.
	FullLine bool

	// OneHit, when positive, stops after the first OneHit hit points;
	// each partition contributes two.
	OneHit int

	// MaxDist, when positive, is the ray length: partitions starting
	// beyond it are dropped. Partitions starting within it keep their
	// full extent.
	MaxDist float64

	// Hook receives telemetry. It is called from the shooting goroutine
	// and must be safe for concurrent use.
	Hook Hook
}

// Hook is the telemetry sampling point. worker is the shooting
// Resource's id, usable as a shard key.
type Hook interface {
	// SolidShot reports one solver call and the segments it produced.
	SolidShot(worker int, id kernel.SoltabID, region kernel.RegionID, segs int)

	// RayDone reports a finished shot and its partition count.
	RayDone(worker int, partitions int)

	// Violation reports an invariant violation that was dropped.
	Violation(worker int, v *kernel.InvariantViolation)
}

// Partition is one maximal interval of the ray inside the combined
// solid. In and Out carry the provenance of the surface visible at each
// boundary; the two may come from different solids and regions.
type Partition struct {
	In     kernel.Hit
	Out    kernel.Hit
	Region kernel.RegionID // region of the entry surface
}

// Len returns the partition length along the ray.
func (p Partition) Len() float64 {
	return p.Out.Dist - p.In.Dist
}
