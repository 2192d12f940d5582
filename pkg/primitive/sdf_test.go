package primitive

import (
	"errors"
	"testing"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestSDFBoxMatchesRPP(t *testing.T) {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatalf("Box3D: %v", err)
	}
	s := mustPrep(t, SDFParams{Solid: box})
	rpp := mustPrep(t, RPP(v3.Vec{X: -1, Y: -1, Z: -1}, v3.Vec{X: 1, Y: 1, Z: 1}))

	rays := []struct {
		name        string
		origin, dir v3.Vec
	}{
		{"along x", v3.Vec{X: -5, Y: 0.3, Z: 0.2}, v3.Vec{X: 1}},
		{"along -z", v3.Vec{X: 0.1, Y: -0.6, Z: 4}, v3.Vec{Z: -1}},
		{"oblique", v3.Vec{X: -4, Y: -3, Z: 0.5}, v3.Vec{X: 1, Y: 0.7, Z: -0.1}},
		{"from inside", v3.Vec{}, v3.Vec{Y: 1}},
		{"miss", v3.Vec{X: -5, Y: 3}, v3.Vec{X: 1}},
	}
	for _, r := range rays {
		t.Run(r.name, func(t *testing.T) {
			want := shoot(rpp, r.origin, r.dir)
			got := shoot(s, r.origin, r.dir)
			var ws [][2]float64
			for _, w := range want {
				ws = append(ws, [2]float64{w.In.Dist, w.Out.Dist})
			}
			expectSpans(t, got, 1e-6, ws...)
			for i := range got {
				expectVec(t, "in normal", got[i].In.Normal, want[i].In.Normal, 1e-4)
				expectVec(t, "out normal", got[i].Out.Normal, want[i].Out.Normal, 1e-4)
			}
		})
	}
}

func TestSDFSphereWithPlacement(t *testing.T) {
	ball, err := sdf.Sphere3D(1)
	if err != nil {
		t.Fatalf("Sphere3D: %v", err)
	}
	s := mustPrepAt(t, SDFParams{Solid: ball}, Place(v3.Vec{X: 1}, v3.Vec{}))
	segs := shoot(s, v3.Vec{X: -5}, v3.Vec{X: 1})
	expectSpans(t, segs, 1e-6, [2]float64{5, 7})
	expectVec(t, "in normal", segs[0].In.Normal, v3.Vec{X: -1}, 1e-4)
}

func TestSDFThinSolidOutlastsStepBudget(t *testing.T) {
	// The field never exceeds 0.001 inside, so the march runs out of
	// steps long before the far face.
	rod, err := sdf.Box3D(v3.Vec{X: 10, Y: 0.002, Z: 0.002}, 0)
	if err != nil {
		t.Fatalf("Box3D: %v", err)
	}
	s := mustPrep(t, SDFParams{Solid: rod})
	segs := shoot(s, v3.Vec{X: -6}, v3.Vec{X: 1})
	expectSpans(t, segs, 1e-6, [2]float64{1, 11})
	expectVec(t, "out normal", segs[0].Out.Normal, v3.Vec{X: 1}, 1e-3)
}

func TestSDFDifferenceHasTwoSegments(t *testing.T) {
	outer, _ := sdf.Box3D(v3.Vec{X: 4, Y: 2, Z: 2}, 0)
	inner, _ := sdf.Box3D(v3.Vec{X: 2, Y: 4, Z: 4}, 0)
	s := mustPrep(t, SDFParams{Solid: sdf.Difference3D(outer, inner)})
	expectSpans(t, shoot(s, v3.Vec{X: -5}, v3.Vec{X: 1}), 1e-6,
		[2]float64{3, 4}, [2]float64{6, 7})
}

func TestSDFPrepErrors(t *testing.T) {
	_, err := Prep("empty", SDFParams{}, sdf.Identity3d(), kernel.DefaultTol())
	var gie *kernel.GeometryInvalidError
	if !errors.As(err, &gie) {
		t.Fatalf("expected GeometryInvalidError, got %v", err)
	}
}

func TestPrepUnknownParams(t *testing.T) {
	if _, err := Prep("nothing", nil, sdf.Identity3d(), kernel.DefaultTol()); err == nil {
		t.Fatal("expected error for nil params")
	}
}
