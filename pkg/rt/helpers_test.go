package rt

import (
	"math"
	"testing"

	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/primitive"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const eps = 1e-9

func sph(name string, x, y, z, r float64) SolidSpec {
	return SolidSpec{Name: name, Params: primitive.SphereParams{Center: v3.Vec{X: x, Y: y, Z: z}, Radius: r}}
}

func rpp(name string, min, max v3.Vec) SolidSpec {
	return SolidSpec{Name: name, Params: primitive.RPP(min, max)}
}

func torus(name string, r1, r2 float64) SolidSpec {
	return SolidSpec{Name: name, Params: primitive.TorParams{H: v3.Vec{Z: 1}, R1: r1, R2: r2}}
}

func buildScene(t *testing.T, tree *csg.Node, solids ...SolidSpec) *Scene {
	t.Helper()
	sc, diags, err := Build(SceneSpec{Solids: solids, Tree: tree})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(diags) > 0 {
		t.Fatalf("Build dropped solids: %v", diags)
	}
	return sc
}

func ray(px, py, pz, dx, dy, dz float64) kernel.Ray {
	return kernel.NewRay(v3.Vec{X: px, Y: py, Z: pz}, v3.Vec{X: dx, Y: dy, Z: dz})
}

// shootCopy shoots on a fresh resource and detaches the result from it.
func shootCopy(sc *Scene, r kernel.Ray, opts Options) []Partition {
	return append([]Partition(nil), NewResource(0).Shoot(sc, r, opts)...)
}

func intervals(parts []Partition) [][2]float64 {
	out := make([][2]float64, len(parts))
	for i, p := range parts {
		out[i] = [2]float64{p.In.Dist, p.Out.Dist}
	}
	return out
}

func expectIntervals(t *testing.T, parts []Partition, want ...[2]float64) {
	t.Helper()
	if len(parts) != len(want) {
		t.Fatalf("got %d partitions %v, want %v", len(parts), intervals(parts), want)
	}
	for i, w := range want {
		if math.Abs(parts[i].In.Dist-w[0]) > eps || math.Abs(parts[i].Out.Dist-w[1]) > eps {
			t.Errorf("partition %d = [%.9g, %.9g], want [%g, %g]",
				i, parts[i].In.Dist, parts[i].Out.Dist, w[0], w[1])
		}
	}
}

func expectVec(t *testing.T, what string, got, want v3.Vec) {
	t.Helper()
	if got.Sub(want).Length() > 1e-6 {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

// fanRays is a deterministic bundle of slightly oblique rays crossing
// the region around the origin, plus the three axes.
func fanRays() []kernel.Ray {
	var rays []kernel.Ray
	for i := 0; i < 15; i++ {
		for j := 0; j < 15; j++ {
			y := -3 + 6*float64(i)/14 + 0.0123
			z := -3 + 6*float64(j)/14 - 0.0071
			rays = append(rays, ray(-10, y, z, 1, 0.05*float64(i-7), 0.03*float64(j-7)))
		}
	}
	return append(rays,
		ray(-10, 0, 0, 1, 0, 0),
		ray(0, -10, 0, 0, 1, 0),
		ray(0, 0, 10, 0, 0, -1),
	)
}
