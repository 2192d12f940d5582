package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// SoltabID indexes the scene's solid table.
type SoltabID int32

// RegionID indexes the scene's region table.
type RegionID int32

// NoRegion marks a segment that has not been tagged by a leaf yet.
const NoRegion RegionID = -1

// Hit is one ray/surface crossing.
type Hit struct {
	Dist   float64 // parametric distance along the ray
	Point  v3.Vec  // world-space point
	Normal v3.Vec  // outward unit normal of the solid that produced it
	Surf   int     // per-type annotation (face, plane or triangle index)

	Soltab SoltabID // solid whose surface this is
	Region RegionID // region the solid was reached through
	Flip   bool     // seen from inside: the visible normal is -Normal
}

// Segment is the ray's passage through one solid between In and Out.
type Segment struct {
	In     Hit
	Out    Hit
	Soltab SoltabID
	Region RegionID
}

// Len returns the segment length along the ray.
func (s Segment) Len() float64 {
	return s.Out.Dist - s.In.Dist
}

// Tag stamps provenance on the segment and both of its hits.
func (s *Segment) Tag(id SoltabID, region RegionID) {
	s.Soltab, s.Region = id, region
	s.In.Soltab, s.In.Region = id, region
	s.Out.Soltab, s.Out.Region = id, region
}

// MakeSegment builds a segment from two distances along ray. Points are
// filled in; normals and surf come from the caller.
func MakeSegment(ray Ray, tIn, tOut float64) Segment {
	return Segment{
		In:  Hit{Dist: tIn, Point: ray.At(tIn)},
		Out: Hit{Dist: tOut, Point: ray.At(tOut)},
	}
}
