package rt

import "github.com/chazu/rayweave/pkg/kernel"

// finish turns the root span into r.parts: ordering check, coalescing,
// normal resolution and the caller's visibility options.
func (r *Resource) finish(sc *Scene, root span, opts Options) {
	tol := sc.tol
	lastOut := 0.0
	for i := int(root.start); i < int(root.end); i++ {
		s := r.segs[i]
		idx := i - int(root.start)
		if s.In.Dist > s.Out.Dist {
			r.violation(opts, &kernel.InvariantViolation{
				What: "partition in > out", Index: idx, A: s.In.Dist, B: s.Out.Dist,
			})
			continue
		}
		if n := len(r.parts); n > 0 {
			if s.In.Dist < lastOut {
				r.violation(opts, &kernel.InvariantViolation{
					What: "partitions overlap", Index: idx, A: lastOut, B: s.In.Dist,
				})
				continue
			}
			if s.In.Dist-lastOut <= tol.Dist {
				r.parts[n-1].Out = s.Out
				lastOut = s.Out.Dist
				continue
			}
		}
		r.parts = append(r.parts, Partition{In: s.In, Out: s.Out, Region: s.Region})
		lastOut = s.Out.Dist
	}

	w := 0
	hits := 0
	for _, p := range r.parts {
		if p.Len() <= tol.Dist {
			continue
		}
		if !opts.FullLine && p.Out.Dist < 0 {
			continue
		}
		if opts.MaxDist > 0 && p.In.Dist > opts.MaxDist {
			continue
		}
		if opts.OneHit > 0 && hits >= opts.OneHit {
			break
		}
		sc.resolveNormal(&p.In, p.In.Soltab)
		sc.resolveNormal(&p.Out, p.In.Soltab)
		r.parts[w] = p
		w++
		hits += 2
	}
	r.parts = r.parts[:w]
}

// resolveNormal recomputes h's normal from its own solid when that
// solid is not the one the partition was entered through, or when the
// surface is seen from inside.
func (sc *Scene) resolveNormal(h *kernel.Hit, opened kernel.SoltabID) {
	if h.Soltab == opened && !h.Flip {
		return
	}
	st := sc.Soltab(h.Soltab)
	if st == nil {
		return
	}
	n := st.Solver.Normal(h.Point, h.Surf)
	if h.Flip {
		n = n.MulScalar(-1)
	}
	h.Normal = n
}
