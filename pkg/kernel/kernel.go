// Package kernel defines the shared data model of the ray/solid
// intersection kernel: rays, hits, segments, tolerances and the
// Solver interface every primitive type implements. Primitive
// implementations live in pkg/primitive; boolean evaluation lives in
// pkg/rt. Nothing in this package allocates on the shoot path.
package kernel

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind identifies a primitive type. The set is closed.
type Kind int

const (
	KindSphere Kind = iota
	KindEllipsoid
	KindTorus
	KindARB8
	KindBOT
	KindSDF
	KindTGC
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sph"
	case KindEllipsoid:
		return "ell"
	case KindTorus:
		return "tor"
	case KindARB8:
		return "arb8"
	case KindBOT:
		return "bot"
	case KindSDF:
		return "sdf"
	case KindTGC:
		return "tgc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// VDivideTol is the smallest magnitude that may safely appear as a
// divisor. A discriminant below it is treated as a tangent, i.e. a miss.
const VDivideTol = 1.0e-20

// Tol is the scene-wide tolerance pair.
type Tol struct {
	Dist float64 // two distances closer than this are the same point
	Perp float64 // |cos| below this counts as perpendicular
}

// DefaultTol returns the default tolerances (0.0005 distance, 1e-6 perp).
func DefaultTol() Tol {
	return Tol{Dist: 0.0005, Perp: 1e-6}
}

// Solver is the per-primitive capability set produced by a successful
// prep. A Solver is immutable and safe for concurrent use.
type Solver interface {
	// Kind reports the primitive type.
	Kind() Kind

	// Shot appends the segments where ray passes through the solid to
	// dst and returns the extended slice. Segments are sorted and
	// non-overlapping. A miss appends nothing. Shot fills Dist, Point,
	// Normal and Surf of each hit; provenance is stamped by the caller.
	Shot(ray Ray, tol Tol, dst []Segment) []Segment

	// Normal returns the outward unit normal at pt, a point on the
	// surface. surf is the annotation Shot stored in the hit.
	Normal(pt v3.Vec, surf int) v3.Vec

	// Bounds returns the world-space bounding box.
	Bounds() sdf.Box3
}
