package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ray is a half line. Dir is expected to be unit length; with a longer
// or shorter Dir every distance reported is in units of Dir.
type Ray struct {
	Pt  v3.Vec
	Dir v3.Vec
}

// NewRay returns a ray from pt along dir, normalizing dir.
func NewRay(pt, dir v3.Vec) Ray {
	return Ray{Pt: pt, Dir: Unit(dir)}
}

// At returns the point at parametric distance t.
func (r Ray) At(t float64) v3.Vec {
	return r.Pt.Add(r.Dir.MulScalar(t))
}

// Unit returns v scaled to unit length. Vectors shorter than
// VDivideTol come back unchanged.
func Unit(v v3.Vec) v3.Vec {
	m := v.Length()
	if m < VDivideTol {
		return v
	}
	return v.DivScalar(m)
}

// Clip intersects the ray with an axis-aligned box using the slab
// method. It reports the parametric entry and exit distances and false
// when the ray misses the box. pad grows the box on every side.
func Clip(ray Ray, box sdf.Box3, pad float64) (near, far float64, ok bool) {
	near, far = math.Inf(-1), math.Inf(1)
	p := [3]float64{ray.Pt.X, ray.Pt.Y, ray.Pt.Z}
	d := [3]float64{ray.Dir.X, ray.Dir.Y, ray.Dir.Z}
	lo := [3]float64{box.Min.X - pad, box.Min.Y - pad, box.Min.Z - pad}
	hi := [3]float64{box.Max.X + pad, box.Max.Y + pad, box.Max.Z + pad}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < VDivideTol {
			if p[i] < lo[i] || p[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - p[i]) / d[i]
		t1 := (hi[i] - p[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > near {
			near = t0
		}
		if t1 < far {
			far = t1
		}
		if near > far {
			return 0, 0, false
		}
	}
	return near, far, true
}
