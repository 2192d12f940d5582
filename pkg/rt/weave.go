package rt

import (
	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
)

// eval returns the segments of node idx along ray. The left subtree is
// always evaluated before the right one.
func (r *Resource) eval(sc *Scene, idx int32, ray kernel.Ray, opts Options) span {
	n := &sc.nodes[idx]
	if n.op == csg.OpLeaf {
		return r.leaf(sc, n, ray, opts)
	}

	l := r.eval(sc, n.left, ray, opts)
	var rs span
	switch n.op {
	case csg.OpUnion:
		rs = r.eval(sc, n.right, ray, opts)
		if l.empty() {
			return rs
		}
		if rs.empty() {
			return l
		}
	case csg.OpIntersect:
		if l.empty() {
			return l
		}
		rs = r.eval(sc, n.right, ray, opts)
		if rs.empty() {
			return rs
		}
	case csg.OpSubtract:
		if l.empty() {
			return l
		}
		rs = r.eval(sc, n.right, ray, opts)
		if rs.empty() {
			return l
		}
	}
	return r.combine(n.op, l, rs, sc.tol)
}

// leaf shoots one solid and tags its segments with the leaf's solid and
// region. Segments behind the origin are kept: an enclosing subtraction
// may still need them. Solids starting beyond MaxDist are still shot:
// they can cut or extend a partition that begins in range.
func (r *Resource) leaf(sc *Scene, n *node, ray kernel.Ray, opts Options) span {
	start := len(r.segs)
	if n.soltab < 0 {
		return emptySpan(start)
	}
	st := sc.soltabs[n.soltab]
	if _, _, ok := st.Hits(ray, sc.tol); !ok {
		return emptySpan(start)
	}

	r.segs = st.Solver.Shot(ray, sc.tol, r.segs)
	for i := start; i < len(r.segs); i++ {
		r.segs[i].Tag(st.ID, n.region)
	}
	end := r.normalize(start, opts)
	if opts.Hook != nil {
		opts.Hook.SolidShot(r.ID, st.ID, n.region, end-start)
	}
	return span{start: int32(start), end: int32(end)}
}

// normalize enforces the leaf contract on r.segs[start:]: in <= out,
// sorted by entry and non-overlapping. Solvers already guarantee it;
// a reversed segment is a violation and is dropped.
func (r *Resource) normalize(start int, opts Options) int {
	w := start
	for i := start; i < len(r.segs); i++ {
		s := r.segs[i]
		if s.In.Dist > s.Out.Dist {
			r.violation(opts, &kernel.InvariantViolation{
				What: "segment in > out", Index: i - start, A: s.In.Dist, B: s.Out.Dist,
			})
			continue
		}
		// Insertion sort; the input is almost always sorted already.
		j := w
		for j > start && r.segs[j-1].In.Dist > s.In.Dist {
			r.segs[j] = r.segs[j-1]
			j--
		}
		r.segs[j] = s
		w++
	}
	r.segs = r.segs[:w]

	if w-start < 2 {
		return w
	}
	last := start
	for i := start + 1; i < w; i++ {
		s := r.segs[i]
		if s.In.Dist <= r.segs[last].Out.Dist {
			if s.Out.Dist > r.segs[last].Out.Dist {
				r.segs[last].Out = s.Out
			}
			continue
		}
		last++
		r.segs[last] = s
	}
	r.segs = r.segs[:last+1]
	return last + 1
}

// event is one segment boundary seen by the sweep.
type event struct {
	hit   kernel.Hit
	right bool // from the right operand
	enter bool
}

func (r *Resource) event(s span, i int, right bool) event {
	seg := &r.segs[int(s.start)+i/2]
	if i%2 == 0 {
		return event{hit: seg.In, right: right, enter: true}
	}
	return event{hit: seg.Out, right: right, enter: false}
}

func inside(op csg.Op, l, r bool) bool {
	switch op {
	case csg.OpUnion:
		return l || r
	case csg.OpIntersect:
		return l && r
	case csg.OpSubtract:
		return l && !r
	}
	return false
}

// combine merges two sorted, disjoint segment lists under op and appends
// the result to r.segs.
//
// Boundaries of both operands are swept in distance order, left first on
// ties. Boundaries within tol.Dist of the first one of a run form a
// cluster and are applied together; the output only changes state when
// the inside predicate differs across the whole cluster. Spans that
// would open and close inside one cluster therefore vanish, and spans
// that touch within tolerance are joined.
//
// The surface reported at a transition is the first boundary in sweep
// order that can cause it: an entry opening a union or intersection, a
// left entry or right exit opening a subtraction, and the converse when
// closing. Right operand surfaces of a subtraction are seen from inside
// and come out flipped.
func (r *Resource) combine(op csg.Op, ls, rs span, tol kernel.Tol) span {
	out := len(r.segs)
	nl, nr := 2*ls.len(), 2*rs.len()
	li, ri := 0, 0
	inL, inR := false, false
	var cur kernel.Segment

	next := func() event {
		if li < nl {
			if ri >= nr {
				li++
				return r.event(ls, li-1, false)
			}
			le, re := r.event(ls, li, false), r.event(rs, ri, true)
			if le.hit.Dist <= re.hit.Dist {
				li++
				return le
			}
			ri++
			return re
		}
		ri++
		return r.event(rs, ri-1, true)
	}
	peek := func() float64 {
		switch {
		case li < nl && ri < nr:
			return min(r.event(ls, li, false).hit.Dist, r.event(rs, ri, true).hit.Dist)
		case li < nl:
			return r.event(ls, li, false).hit.Dist
		default:
			return r.event(rs, ri, true).hit.Dist
		}
	}

	for li < nl || ri < nr {
		before := inside(op, inL, inR)
		first := next()
		clusterStart := first.hit.Dist

		var opener, closer *event
		e := first
		for {
			pos := e.enter
			if op == csg.OpSubtract && e.right {
				pos = !pos
			}
			if pos && opener == nil {
				c := e
				opener = &c
			}
			if !pos && closer == nil {
				c := e
				closer = &c
			}
			if e.right {
				inR = e.enter
			} else {
				inL = e.enter
			}
			if (li >= nl && ri >= nr) || peek()-clusterStart > tol.Dist {
				break
			}
			e = next()
		}

		after := inside(op, inL, inR)
		if before == after {
			continue
		}
		src := first
		if after && opener != nil {
			src = *opener
		} else if !after && closer != nil {
			src = *closer
		}
		h := src.hit
		if op == csg.OpSubtract && src.right {
			h.Flip = !h.Flip
		}
		if after {
			cur = kernel.Segment{In: h, Soltab: h.Soltab, Region: h.Region}
			continue
		}
		cur.Out = h
		r.segs = append(r.segs, cur)
	}
	return span{start: int32(out), end: int32(len(r.segs))}
}
