package primitive

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// botTri is one prepped triangle: a corner, two edges and the unit
// normal given by the winding (e1 x e2).
type botTri struct {
	a, e1, e2 v3.Vec
	n         v3.Vec
	thick     float64 // plate thickness
	appended  bool    // plate lies beyond the surface along the ray
}

// botNode is a bounding volume hierarchy node. Leaves hold the triangle
// range [first, first+count) of the solver's reordered triangle list;
// inner nodes have count == 0 and index their children in nodes.
type botNode struct {
	box         sdf.Box3
	left, right int32
	first       int32
	count       int32
}

// botLeafSize is the triangle count at or below which a node is a leaf.
const botLeafSize = 8

// botSolver intersects rays with a triangle shell. Surf encodes the
// triangle index and which side faces out: surf = 2*tri + side, where
// side 1 means the outward normal is the reverse of the winding normal.
type botSolver struct {
	tris   []botTri
	nodes  []botNode
	orient Orientation
	mode   BOTMode
	box    sdf.Box3
}

// Compile-time interface check.
var _ kernel.Solver = (*botSolver)(nil)

func prepBOT(p BOTParams, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	if p.Mesh == nil || p.Mesh.IsEmpty() {
		return nil, kernel.Invalid(kernel.KindBOT, "empty mesh")
	}
	m := p.Mesh
	if len(m.Indices)%3 != 0 {
		return nil, kernel.Invalid(kernel.KindBOT, "index count %d not a multiple of 3", len(m.Indices))
	}
	nv := uint32(m.VertexCount())
	for _, ix := range m.Indices {
		if ix >= nv {
			return nil, kernel.Invalid(kernel.KindBOT, "index %d out of range (%d vertices)", ix, nv)
		}
	}

	nt := m.TriangleCount()
	switch p.Mode {
	case BOTSolid, BOTSurface:
	case BOTPlate, BOTPlateNoCos:
		if len(p.Thickness) != nt {
			return nil, kernel.Invalid(kernel.KindBOT, "%s mode needs %d thicknesses, got %d", p.Mode, nt, len(p.Thickness))
		}
		for i, th := range p.Thickness {
			if !(th > 0) || math.IsInf(th, 0) {
				return nil, kernel.Invalid(kernel.KindBOT, "triangle %d thickness %g not positive", i, th)
			}
		}
	default:
		return nil, kernel.Invalid(kernel.KindBOT, "unknown mode %d", int(p.Mode))
	}
	if len(p.FaceAppend) != 0 && len(p.FaceAppend) != nt {
		return nil, kernel.Invalid(kernel.KindBOT, "%d face append flags for %d triangles", len(p.FaceAppend), nt)
	}

	s := &botSolver{orient: p.Orientation, mode: p.Mode}
	for i := 0; i < nt; i++ {
		a, b, c := m.Triangle(i)
		a, b, c = xformPoint(xform, a), xformPoint(xform, b), xformPoint(xform, c)
		e1, e2 := b.Sub(a), c.Sub(a)
		n := e1.Cross(e2)
		if n.Length() < tol.Dist*tol.Dist {
			// Zero area triangles can never be hit.
			continue
		}
		tri := botTri{a: a, e1: e1, e2: e2, n: kernel.Unit(n)}
		if len(p.Thickness) == nt {
			tri.thick = p.Thickness[i]
		}
		if len(p.FaceAppend) == nt {
			tri.appended = p.FaceAppend[i]
		}
		s.tris = append(s.tris, tri)
	}
	if len(s.tris) == 0 {
		return nil, kernel.Invalid(kernel.KindBOT, "all %d triangles degenerate", nt)
	}
	s.build()
	s.box = s.nodes[0].box
	return s, nil
}

func (t *botTri) bounds() sdf.Box3 {
	return kernel.BoxOf(t.a, t.a.Add(t.e1), t.a.Add(t.e2))
}

func (t *botTri) centroid() v3.Vec {
	return t.a.Add(t.e1.Add(t.e2).DivScalar(3))
}

// build sorts the triangles into a hierarchy split at the spatial
// midpoint of the longest box axis.
func (s *botSolver) build() {
	s.nodes = s.nodes[:0]
	s.buildNode(0, len(s.tris))
}

func (s *botSolver) buildNode(first, end int) int32 {
	box := s.tris[first].bounds()
	for i := first + 1; i < end; i++ {
		b := s.tris[i].bounds()
		box = sdf.Box3{Min: box.Min.Min(b.Min), Max: box.Max.Max(b.Max)}
	}
	idx := int32(len(s.nodes))
	s.nodes = append(s.nodes, botNode{box: box, first: int32(first), count: int32(end - first)})
	if end-first <= botLeafSize {
		return idx
	}

	size := box.Max.Sub(box.Min)
	axis := 0
	if size.Y > size.X && size.Y >= size.Z {
		axis = 1
	} else if size.Z > size.X && size.Z > size.Y {
		axis = 2
	}
	mid := 0.5 * (component(box.Min, axis) + component(box.Max, axis))

	// Partition in place around the midpoint.
	i, j := first, end-1
	for i <= j {
		if component(s.tris[i].centroid(), axis) < mid {
			i++
		} else {
			s.tris[i], s.tris[j] = s.tris[j], s.tris[i]
			j--
		}
	}
	split := i
	if split == first || split == end {
		split = (first + end) / 2
	}

	left := s.buildNode(first, split)
	right := s.buildNode(split, end)
	s.nodes[idx].left, s.nodes[idx].right, s.nodes[idx].count = left, right, 0
	return idx
}

func component(v v3.Vec, axis int) float64 {
	switch axis {
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return v.X
}

func (s *botSolver) Kind() kernel.Kind { return kernel.KindBOT }

func (s *botSolver) Bounds() sdf.Box3 { return s.box }

// botHit is one raw triangle crossing before pairing.
type botHit struct {
	t     float64
	tri   int
	enter bool // ray moves against the winding normal
	in    bool // crossing enters an oriented solid
}

// botMaxHits is the inline hit buffer size; more spill to the heap.
const botMaxHits = 32

func (s *botSolver) Shot(ray kernel.Ray, tol kernel.Tol, dst []kernel.Segment) []kernel.Segment {
	var buf [botMaxHits]botHit
	hits := buf[:0]

	// Midpoint splits of unevenly spread triangles can nest deeper than
	// the inline buffer; append moves the stack to the heap then.
	var stackBuf [64]int32
	stack := append(stackBuf[:0], 0)
	for len(stack) > 0 {
		node := &s.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if _, _, ok := kernel.Clip(ray, node.box, tol.Dist); !ok {
			continue
		}
		if node.count == 0 {
			stack = append(stack, node.right, node.left)
			continue
		}
		for k := node.first; k < node.first+node.count; k++ {
			if t, ok := s.tris[k].intersect(ray); ok {
				hits = append(hits, botHit{t: t, tri: int(k), enter: s.tris[k].n.Dot(ray.Dir) < 0})
			}
		}
	}
	if len(hits) == 0 {
		return dst
	}

	// Insertion sort: hit lists are short and mostly ordered.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].t < hits[j-1].t; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	switch s.mode {
	case BOTSurface:
		for _, h := range dedupeHits(hits, tol, true) {
			dst = append(dst, s.segment(ray, h, h))
		}
		return dst
	case BOTPlate, BOTPlateNoCos:
		return s.plates(ray, dedupeHits(hits, tol, true), dst)
	}

	if s.orient == Unoriented {
		hits = dedupeHits(hits, tol, true)
		if len(hits) == 1 {
			return append(dst, s.segment(ray, hits[0], hits[0]))
		}
		for i := 0; i+1 < len(hits); i += 2 {
			dst = append(dst, s.segment(ray, hits[i], hits[i+1]))
		}
		return dst
	}

	hits = dedupeHits(hits, tol, false)
	for i := range hits {
		hits[i].in = hits[i].enter != (s.orient == CW)
	}
	if len(hits)%2 == 1 {
		hits = balanceHits(hits)
	}
	open := -1
	for i, h := range hits {
		switch {
		case h.in && open < 0:
			open = i
		case !h.in && open >= 0:
			dst = append(dst, s.segment(ray, hits[open], h))
			open = -1
		}
	}
	return dst
}

// dedupeHits keeps one crossing per cluster closer than tol.Dist: a ray
// through a shared edge or vertex crosses every triangle meeting there.
// Unless anySense is set, only crossings of the same sense merge.
func dedupeHits(hits []botHit, tol kernel.Tol, anySense bool) []botHit {
	n := 1
	for i := 1; i < len(hits); i++ {
		prev := hits[n-1]
		if hits[i].t-prev.t <= tol.Dist && (anySense || hits[i].enter == prev.enter) {
			continue
		}
		hits[n] = hits[i]
		n++
	}
	return hits[:n]
}

// balanceHits repairs the odd crossing list of an oriented shell with a
// hole in it. Two entries in a row get an exit at the first of them,
// two exits in a row an entry at the second, and a trailing entry an
// exit at the same distance. The repairs give zero-length segments that
// mark the hole without widening the neighboring segments.
func balanceHits(hits []botHit) []botHit {
	out := make([]botHit, 0, len(hits)+2)
	want := true
	for _, h := range hits {
		if h.in != want {
			fake := h
			if !want {
				fake = out[len(out)-1]
			}
			fake.in = want
			out = append(out, fake)
			want = !want
		}
		out = append(out, h)
		want = !want
	}
	if !want {
		fake := out[len(out)-1]
		fake.in = false
		out = append(out, fake)
	}
	return out
}

// plates turns every crossing into a slab of its triangle's thickness.
// Slabs that overlap along the ray are fused.
func (s *botSolver) plates(ray kernel.Ray, hits []botHit, dst []kernel.Segment) []kernel.Segment {
	start := len(dst)
	dlen := ray.Dir.Length()
	for _, h := range hits {
		tri := &s.tris[h.tri]
		los := tri.thick
		if s.mode == BOTPlate {
			cos := math.Abs(tri.n.Dot(ray.Dir)) / dlen
			if cos < kernel.VDivideTol {
				continue
			}
			los /= cos
		}
		dt := los / dlen
		in, out := h, h
		if tri.appended {
			out.t += dt
		} else {
			in.t -= 0.5 * dt
			out.t += 0.5 * dt
		}
		dst = append(dst, s.segment(ray, in, out))
	}

	segs := dst[start:]
	slices.SortFunc(segs, func(a, b kernel.Segment) int { return cmp.Compare(a.In.Dist, b.In.Dist) })
	n := 0
	for _, sg := range segs {
		if n > 0 && sg.In.Dist <= segs[n-1].Out.Dist {
			if sg.Out.Dist > segs[n-1].Out.Dist {
				segs[n-1].Out = sg.Out
			}
			continue
		}
		segs[n] = sg
		n++
	}
	return dst[:start+n]
}

// segment builds the segment between two raw hits, orienting each
// normal: the entry normal faces the ray, the exit normal follows it.
func (s *botSolver) segment(ray kernel.Ray, in, out botHit) kernel.Segment {
	seg := kernel.MakeSegment(ray, in.t, out.t)
	seg.In.Surf = botSurf(in, true)
	seg.Out.Surf = botSurf(out, false)
	seg.In.Normal = s.Normal(seg.In.Point, seg.In.Surf)
	seg.Out.Normal = s.Normal(seg.Out.Point, seg.Out.Surf)
	return seg
}

// botSurf picks the side of the hit triangle that faces the ray at entry
// and follows it at exit. For a consistently wound shell that is the
// outward side.
func botSurf(h botHit, entry bool) int {
	side := 0
	if h.enter != entry {
		side = 1
	}
	return 2*h.tri + side
}

func (s *botSolver) Normal(pt v3.Vec, surf int) v3.Vec {
	tri := surf / 2
	if tri < 0 || tri >= len(s.tris) {
		return v3.Vec{}
	}
	n := s.tris[tri].n
	if surf%2 == 1 {
		n = n.MulScalar(-1)
	}
	return n
}

// intersect is the Moller-Trumbore test. It reports hits anywhere on the
// line; segments behind the origin matter to the boolean evaluator.
func (t *botTri) intersect(ray kernel.Ray) (float64, bool) {
	p := ray.Dir.Cross(t.e2)
	det := t.e1.Dot(p)
	if math.Abs(det) < 1e-14 {
		return 0, false
	}
	inv := 1 / det
	s := ray.Pt.Sub(t.a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(t.e1)
	v := ray.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return t.e2.Dot(q) * inv, true
}
