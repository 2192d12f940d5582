package rt

import (
	"sync/atomic"

	"github.com/chazu/rayweave/pkg/kernel"
)

// span addresses a run of segments in Resource.segs. Spans are indices,
// never slices: the store may move as it grows.
type span struct {
	start, end int32
}

func (s span) len() int { return int(s.end - s.start) }
func (s span) empty() bool { return s.end <= s.start }
func emptySpan(at int) span { return span{start: int32(at), end: int32(at)} }

// Resource is the per-goroutine scratch arena for shooting. Segments of
// every tree level and the final partitions live in buffers that are
// reused from one shot to the next, so a warmed-up Resource does not
// allocate. A Resource must only be used by one goroutine at a time;
// overlapping calls are reported as invariant violations.
type Resource struct {
	ID int

	busy  atomic.Bool
	segs  []kernel.Segment
	parts []Partition
}

// NewResource returns an empty arena. id is handed to telemetry hooks as
// a shard key.
func NewResource(id int) *Resource {
	return &Resource{
		ID:    id,
		segs:  make([]kernel.Segment, 0, 64),
		parts: make([]Partition, 0, 16),
	}
}

// Shoot evaluates the scene's tree along ray and returns the visible
// partitions, ordered by distance. The returned slice is owned by r and
// is valid until the next Shoot or Reset on r.
func (r *Resource) Shoot(sc *Scene, ray kernel.Ray, opts Options) []Partition {
	if !r.busy.CompareAndSwap(false, true) {
		r.violation(opts, &kernel.InvariantViolation{What: "resource used concurrently", Index: r.ID})
		return nil
	}
	defer r.busy.Store(false)

	r.segs = r.segs[:0]
	r.parts = r.parts[:0]
	if len(sc.nodes) == 0 {
		return r.parts
	}
	root := r.eval(sc, sc.root, ray, opts)
	r.finish(sc, root, opts)
	if opts.Hook != nil {
		opts.Hook.RayDone(r.ID, len(r.parts))
	}
	return r.parts
}

// Reset releases the buffers. The next Shoot grows them again.
func (r *Resource) Reset() {
	r.segs = nil
	r.parts = nil
}

func (r *Resource) violation(opts Options, v *kernel.InvariantViolation) {
	if debugInvariants {
		panic(v)
	}
	if opts.Hook != nil {
		opts.Hook.Violation(r.ID, v)
	}
}
