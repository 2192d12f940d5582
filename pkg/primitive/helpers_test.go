package primitive

import (
	"math"
	"testing"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const eps = 1e-9

// mustPrep preps p with the identity placement and default tolerances.
func mustPrep(t *testing.T, p Params) kernel.Solver {
	t.Helper()
	return mustPrepAt(t, p, sdf.Identity3d())
}

func mustPrepAt(t *testing.T, p Params, xform sdf.M44) kernel.Solver {
	t.Helper()
	s, err := Prep("test", p, xform, kernel.DefaultTol())
	if err != nil {
		t.Fatalf("Prep(%T) failed: %v", p, err)
	}
	return s
}

// shoot fires a ray built from origin and direction (normalized).
func shoot(s kernel.Solver, origin, dir v3.Vec) []kernel.Segment {
	return s.Shot(kernel.NewRay(origin, dir), kernel.DefaultTol(), nil)
}

// expectSpans checks the segment distances against want pairs.
func expectSpans(t *testing.T, segs []kernel.Segment, tol float64, want ...[2]float64) {
	t.Helper()
	if len(segs) != len(want) {
		t.Fatalf("got %d segments %v, want %d", len(segs), spans(segs), len(want))
	}
	for i, w := range want {
		if math.Abs(segs[i].In.Dist-w[0]) > tol || math.Abs(segs[i].Out.Dist-w[1]) > tol {
			t.Errorf("segment %d = [%.9g, %.9g], want [%g, %g]",
				i, segs[i].In.Dist, segs[i].Out.Dist, w[0], w[1])
		}
	}
}

func spans(segs []kernel.Segment) [][2]float64 {
	out := make([][2]float64, len(segs))
	for i, s := range segs {
		out[i] = [2]float64{s.In.Dist, s.Out.Dist}
	}
	return out
}

// expectVec compares vectors component-wise.
func expectVec(t *testing.T, what string, got, want v3.Vec, tol float64) {
	t.Helper()
	if got.Sub(want).Length() > tol {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}
