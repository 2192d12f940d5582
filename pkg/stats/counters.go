// Package stats collects per-solid and per-ray hit counters from many
// shooting goroutines at once. Counters are sharded by worker id so two
// workers rarely touch the same cache line; totals are summed on read.
package stats

import (
	"sync/atomic"

	"github.com/chazu/rayweave/pkg/kernel"
)

// NumShards must be a power of two.
const NumShards = 16

type shard struct {
	rays       atomic.Uint64
	partitions atomic.Uint64
	violations atomic.Uint64
	shots      []atomic.Uint64 // indexed by SoltabID
	segments   []atomic.Uint64 // indexed by SoltabID

	_ [64]byte
}

// Counters implements rt.Hook. The zero value is not usable; call New.
type Counters struct {
	names  []string
	shards [NumShards]shard
}

// New returns counters for a scene whose solid table holds names, in
// SoltabID order.
func New(names []string) *Counters {
	c := &Counters{names: append([]string(nil), names...)}
	for i := range c.shards {
		c.shards[i].shots = make([]atomic.Uint64, len(names))
		c.shards[i].segments = make([]atomic.Uint64, len(names))
	}
	return c
}

func (c *Counters) shard(worker int) *shard {
	return &c.shards[worker&(NumShards-1)]
}

// SolidShot records one solver call on solid id that produced segs
// segments. Unknown ids are ignored.
func (c *Counters) SolidShot(worker int, id kernel.SoltabID, _ kernel.RegionID, segs int) {
	sh := c.shard(worker)
	if id < 0 || int(id) >= len(sh.shots) {
		return
	}
	sh.shots[id].Add(1)
	sh.segments[id].Add(uint64(segs))
}

// RayDone records one finished ray and the partitions it produced.
func (c *Counters) RayDone(worker int, partitions int) {
	sh := c.shard(worker)
	sh.rays.Add(1)
	sh.partitions.Add(uint64(partitions))
}

// Violation counts a dropped invariant violation.
func (c *Counters) Violation(worker int, _ *kernel.InvariantViolation) {
	c.shard(worker).violations.Add(1)
}

// SolidCount is the per-solid part of a Snapshot.
type SolidCount struct {
	Name     string
	Shots    uint64
	Segments uint64
}

// Snapshot is a point-in-time sum over all shards.
type Snapshot struct {
	Rays       uint64
	Partitions uint64
	Violations uint64
	Solids     []SolidCount
}

// Snapshot sums the shards. It may run while workers are still
// counting; the result is then a lower bound.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{Solids: make([]SolidCount, len(c.names))}
	for i, name := range c.names {
		s.Solids[i].Name = name
	}
	for i := range c.shards {
		sh := &c.shards[i]
		s.Rays += sh.rays.Load()
		s.Partitions += sh.partitions.Load()
		s.Violations += sh.violations.Load()
		for j := range sh.shots {
			s.Solids[j].Shots += sh.shots[j].Load()
			s.Solids[j].Segments += sh.segments[j].Load()
		}
	}
	return s
}

// PartitionsPerRay is zero before any ray.
func (s Snapshot) PartitionsPerRay() float64 {
	if s.Rays == 0 {
		return 0
	}
	return float64(s.Partitions) / float64(s.Rays)
}
