package primitive

import "math"

// maxDegree is the highest polynomial degree any solver needs (torus).
const maxDegree = 4

// poly is a real polynomial of degree n; c[i] is the coefficient of x^i.
// It is a value type so that root finding stays on the stack.
type poly struct {
	c [maxDegree + 1]float64
	n int
}

func (p poly) eval(x float64) float64 {
	y := p.c[p.n]
	for i := p.n - 1; i >= 0; i-- {
		y = y*x + p.c[i]
	}
	return y
}

// evalFuzz evaluates p at x and snaps results lost in rounding noise to
// zero, so that a double root is not split into two by round-off.
func (p poly) evalFuzz(x float64) float64 {
	y := p.c[p.n]
	mag := math.Abs(y)
	ax := math.Abs(x)
	for i := p.n - 1; i >= 0; i-- {
		y = y*x + p.c[i]
		mag = mag*ax + math.Abs(p.c[i])
	}
	if math.Abs(y) <= 64*epsilon*mag {
		return 0
	}
	return y
}

const epsilon = 2.220446049250313e-16

func (p poly) deriv() poly {
	var d poly
	if p.n == 0 {
		return d
	}
	d.n = p.n - 1
	for i := 1; i <= p.n; i++ {
		d.c[i-1] = float64(i) * p.c[i]
	}
	return d
}

// monic divides through by the leading coefficient. It returns false
// when the leading coefficient vanishes.
func (p poly) monic() (poly, bool) {
	lead := p.c[p.n]
	if math.Abs(lead) < 1e-30 {
		return p, false
	}
	for i := 0; i <= p.n; i++ {
		p.c[i] /= lead
	}
	return p, true
}

// roots appends the real roots of p that lie strictly inside (lo, hi),
// in ascending order. Roots are isolated between the critical points of
// p, found recursively from its derivative, and refined by bisection. A
// root of even multiplicity produces no sign change and is not reported;
// callers rely on that to treat tangencies as misses.
func (p poly) roots(lo, hi float64, dst []float64) []float64 {
	switch p.n {
	case 0:
		return dst
	case 1:
		if math.Abs(p.c[1]) < 1e-30 {
			return dst
		}
		x := -p.c[0] / p.c[1]
		if x > lo && x < hi {
			dst = append(dst, x)
		}
		return dst
	}

	var buf [maxDegree + 2]float64
	pts := append(buf[:0], lo)
	pts = p.deriv().roots(lo, hi, pts)
	pts = append(pts, hi)

	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		fa, fb := p.evalFuzz(a), p.evalFuzz(b)
		if fa == 0 || fb == 0 || (fa < 0) == (fb < 0) {
			continue
		}
		dst = append(dst, bisect(p, a, b, fa))
	}
	return dst
}

// bisect narrows a sign change of p on [a, b] to machine precision.
func bisect(p poly, a, b, fa float64) float64 {
	for iter := 0; iter < 200; iter++ {
		m := 0.5 * (a + b)
		if m <= a || m >= b {
			break
		}
		fm := p.eval(m)
		if fm == 0 {
			return m
		}
		if (fm < 0) == (fa < 0) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	return 0.5 * (a + b)
}

// quadratic solves a*t^2 + 2*b*t + c = 0 for the half-b form used by the
// quadric solvers. It returns the roots in ascending order, or false when
// the discriminant is below tol (a tangent counts as a miss).
func quadratic(a, b, c, tol float64) (t0, t1 float64, ok bool) {
	if math.Abs(a) < tol {
		return 0, 0, false
	}
	disc := b*b - a*c
	if disc < tol {
		return 0, 0, false
	}
	// Stable form: q = -(b + sign(b)*sqrt(disc)), roots q/a and c/q.
	q := -(b + math.Copysign(math.Sqrt(disc), b))
	t0 = q / a
	if q != 0 {
		t1 = c / q
	} else {
		t1 = -t0
	}
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	return t0, t1, true
}

// linear returns the polynomial a + b*x.
func linear(a, b float64) poly {
	return poly{c: [maxDegree + 1]float64{a, b}, n: 1}
}

// mul multiplies p by q. The product must not exceed maxDegree.
func (p poly) mul(q poly) poly {
	var r poly
	r.n = p.n + q.n
	for i := 0; i <= p.n; i++ {
		for j := 0; j <= q.n; j++ {
			r.c[i+j] += p.c[i] * q.c[j]
		}
	}
	return r
}

func (p poly) add(q poly) poly {
	if q.n > p.n {
		p, q = q, p
	}
	for i := 0; i <= q.n; i++ {
		p.c[i] += q.c[i]
	}
	return p
}

func (p poly) sub(q poly) poly {
	for i := 0; i <= q.n; i++ {
		q.c[i] = -q.c[i]
	}
	return p.add(q)
}

// trim drops leading coefficients that vanish next to the largest one,
// so that a quartic whose top terms cancel is solved as what it is.
func (p poly) trim() poly {
	big := 0.0
	for i := 0; i <= p.n; i++ {
		big = math.Max(big, math.Abs(p.c[i]))
	}
	for p.n > 0 && math.Abs(p.c[p.n]) <= 1e-12*big {
		p.c[p.n] = 0
		p.n--
	}
	return p
}
