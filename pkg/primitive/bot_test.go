package primitive

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// unitCubeQuads lists the faces of [0,1]^3, counter-clockwise seen from
// outside.
var unitCubeQuads = [6][4]v3.Vec{
	{{}, {Y: 1}, {X: 1, Y: 1}, {X: 1}},                       // -z
	{{Z: 1}, {X: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {Y: 1, Z: 1}}, // +z
	{{}, {X: 1}, {X: 1, Z: 1}, {Z: 1}},                       // -y
	{{Y: 1}, {Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1}}, // +y
	{{}, {Z: 1}, {Y: 1, Z: 1}, {Y: 1}},                       // -x
	{{X: 1}, {X: 1, Y: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Z: 1}}, // +x
}

// cubeMesh builds the unit cube shell. reverse flips the winding of the
// faces whose index is set in the mask.
func cubeMesh(reverse uint) *kernel.Mesh {
	m := &kernel.Mesh{}
	for i, q := range unitCubeQuads {
		if reverse&(1<<uint(i)) != 0 {
			m.AddTriangle(q[0], q[2], q[1])
			m.AddTriangle(q[0], q[3], q[2])
			continue
		}
		m.AddTriangle(q[0], q[1], q[2])
		m.AddTriangle(q[0], q[2], q[3])
	}
	return m
}

func TestBOTMatchesRPP(t *testing.T) {
	rpp := mustPrep(t, RPP(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}))
	shells := []struct {
		name string
		p    BOTParams
	}{
		{"ccw", BOTParams{Mesh: cubeMesh(0), Orientation: CCW}},
		{"cw", BOTParams{Mesh: cubeMesh(0x3f), Orientation: CW}},
		{"unoriented mixed winding", BOTParams{Mesh: cubeMesh(0x15), Orientation: Unoriented}},
	}
	rays := []struct {
		name        string
		origin, dir v3.Vec
	}{
		{"along x", v3.Vec{X: -1, Y: 0.3, Z: 0.4}, v3.Vec{X: 1}},
		{"along -y", v3.Vec{X: 0.7, Y: 3, Z: 0.2}, v3.Vec{Y: -1}},
		{"across a diagonal edge", v3.Vec{X: 0.5, Y: 0.5, Z: -1}, v3.Vec{Z: 1}},
		{"oblique", v3.Vec{X: -1, Y: -1, Z: -1}, v3.Vec{X: 1, Y: 1.2, Z: 1.1}},
		{"miss", v3.Vec{X: -1, Y: 2, Z: 0.5}, v3.Vec{X: 1}},
	}
	for _, sh := range shells {
		bot := mustPrep(t, sh.p)
		for _, r := range rays {
			t.Run(sh.name+"/"+r.name, func(t *testing.T) {
				want := shoot(rpp, r.origin, r.dir)
				got := shoot(bot, r.origin, r.dir)
				var ws [][2]float64
				for _, s := range want {
					ws = append(ws, [2]float64{s.In.Dist, s.Out.Dist})
				}
				expectSpans(t, got, 1e-9, ws...)
				for i := range got {
					expectVec(t, "in normal", got[i].In.Normal, want[i].In.Normal, 1e-9)
					expectVec(t, "out normal", got[i].Out.Normal, want[i].Out.Normal, 1e-9)
					expectVec(t, "Normal(out)", bot.Normal(got[i].Out.Point, got[i].Out.Surf), want[i].Out.Normal, 1e-9)
				}
			})
		}
	}
}

func TestBOTTwoShells(t *testing.T) {
	m := cubeMesh(0)
	far := cubeMesh(0)
	for i := 0; i < len(far.Vertices); i += 3 {
		far.Vertices[i] += 3
	}
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, far.Vertices...)
	m.Normals = append(m.Normals, far.Normals...)
	for _, ix := range far.Indices {
		m.Indices = append(m.Indices, ix+base)
	}
	s := mustPrep(t, BOTParams{Mesh: m, Orientation: CCW})
	expectSpans(t, shoot(s, v3.Vec{X: -1, Y: 0.5, Z: 0.25}, v3.Vec{X: 1}), 1e-9,
		[2]float64{1, 2}, [2]float64{4, 5})
}

func TestBOTPrepErrors(t *testing.T) {
	degenerate := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 2, 0, 0},
		Indices:  []uint32{0, 1, 2},
	}
	outOfRange := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 7},
	}
	tests := []struct {
		name string
		p    BOTParams
	}{
		{"nil mesh", BOTParams{}},
		{"empty mesh", BOTParams{Mesh: &kernel.Mesh{}}},
		{"degenerate triangles", BOTParams{Mesh: degenerate}},
		{"index out of range", BOTParams{Mesh: outOfRange}},
		{"plate without thickness", BOTParams{Mesh: cubeMesh(0), Mode: BOTPlate}},
		{"plate with zero thickness", BOTParams{Mesh: cubeMesh(0), Mode: BOTPlateNoCos, Thickness: make([]float64, 12)}},
		{"short append flags", BOTParams{Mesh: cubeMesh(0), FaceAppend: []bool{true}}},
		{"unknown mode", BOTParams{Mesh: cubeMesh(0), Mode: BOTMode(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prep("bot", tt.p, sdf.Identity3d(), kernel.DefaultTol())
			var gie *kernel.GeometryInvalidError
			if !errors.As(err, &gie) {
				t.Fatalf("expected GeometryInvalidError, got %v", err)
			}
		})
	}
}

func botDepth(s *botSolver, i int32) int {
	n := s.nodes[i]
	if n.count > 0 {
		return 1
	}
	return 1 + max(botDepth(s, n.left), botDepth(s, n.right))
}

func TestBOTDeepHierarchy(t *testing.T) {
	// Triangles at x = 2^k split off one per level.
	m := &kernel.Mesh{}
	for k := 0; k < 100; k++ {
		c := math.Ldexp(1, k)
		m.AddTriangle(v3.Vec{X: c}, v3.Vec{X: c, Y: 1}, v3.Vec{X: c, Z: 1})
	}
	s := mustPrep(t, BOTParams{Mesh: m, Orientation: Unoriented})
	if d := botDepth(s.(*botSolver), 0); d <= 64 {
		t.Fatalf("hierarchy depth %d, want more than 64", d)
	}
	segs := shoot(s, v3.Vec{X: 0.5, Y: 0.2, Z: 0.2}, v3.Vec{X: 1})
	if len(segs) != 50 {
		t.Fatalf("got %d segments, want 50", len(segs))
	}
	expectSpans(t, segs[:2], 1e-9, [2]float64{0.5, 1.5}, [2]float64{3.5, 7.5})
}

// addSquare adds the square [-2,2]^2 in the plane at x, wound towards +x.
func addSquare(m *kernel.Mesh, x float64) {
	a := v3.Vec{X: x, Y: -2, Z: -2}
	b := v3.Vec{X: x, Y: 2, Z: -2}
	c := v3.Vec{X: x, Y: 2, Z: 2}
	d := v3.Vec{X: x, Y: -2, Z: 2}
	m.AddTriangle(a, b, c)
	m.AddTriangle(a, c, d)
}

func TestBOTSurfaceMode(t *testing.T) {
	s := mustPrep(t, BOTParams{Mesh: cubeMesh(0), Orientation: CCW, Mode: BOTSurface})
	segs := shoot(s, v3.Vec{X: -1, Y: 0.3, Z: 0.4}, v3.Vec{X: 1})
	expectSpans(t, segs, 1e-9, [2]float64{1, 1}, [2]float64{2, 2})

	sheet := &kernel.Mesh{}
	addSquare(sheet, 1)
	s = mustPrep(t, BOTParams{Mesh: sheet, Mode: BOTSurface})
	segs = shoot(s, v3.Vec{X: 3, Y: 0.3, Z: 0.4}, v3.Vec{X: -1})
	expectSpans(t, segs, 1e-9, [2]float64{2, 2})
	expectVec(t, "in normal", segs[0].In.Normal, v3.Vec{X: 1}, 1e-12)
	expectVec(t, "out normal", segs[0].Out.Normal, v3.Vec{X: -1}, 1e-12)
}

func TestBOTPlateModes(t *testing.T) {
	straight := v3.Vec{X: 1}
	oblique := v3.Vec{X: 1, Y: math.Sqrt(3)} // 60 degrees off the plate normal
	tests := []struct {
		name    string
		planes  []float64
		mode    BOTMode
		thick   float64
		appends bool
		dir     v3.Vec
		want    [][2]float64
	}{
		{"centered", []float64{1}, BOTPlate, 0.2, false, straight, [][2]float64{{0.9, 1.1}}},
		{"centered oblique", []float64{1}, BOTPlate, 0.2, false, oblique, [][2]float64{{1.8, 2.2}}},
		{"no cosine oblique", []float64{1}, BOTPlateNoCos, 0.2, false, oblique, [][2]float64{{1.9, 2.1}}},
		{"appended oblique", []float64{1}, BOTPlate, 0.2, true, oblique, [][2]float64{{2, 2.4}}},
		{"overlapping plates fuse", []float64{1, 1.1}, BOTPlate, 0.2, false, straight, [][2]float64{{0.9, 1.2}}},
		{"separate plates", []float64{1, 2}, BOTPlateNoCos, 0.2, false, straight, [][2]float64{{0.9, 1.1}, {1.9, 2.1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &kernel.Mesh{}
			for _, x := range tt.planes {
				addSquare(m, x)
			}
			p := BOTParams{Mesh: m, Mode: tt.mode, Thickness: make([]float64, m.TriangleCount())}
			for i := range p.Thickness {
				p.Thickness[i] = tt.thick
			}
			if tt.appends {
				p.FaceAppend = make([]bool, m.TriangleCount())
				for i := range p.FaceAppend {
					p.FaceAppend[i] = true
				}
			}
			segs := shoot(mustPrep(t, p), v3.Vec{Z: 0.4}, tt.dir)
			expectSpans(t, segs, 1e-9, tt.want...)
			for i := range segs {
				expectVec(t, "in normal", segs[i].In.Normal, v3.Vec{X: -1}, 1e-12)
				expectVec(t, "out normal", segs[i].Out.Normal, v3.Vec{X: 1}, 1e-12)
			}
		})
	}
}

func TestBOTOddCrossings(t *testing.T) {
	// The first cube has lost its +x face.
	m := cubeMesh(0)
	m.Indices = m.Indices[:30]
	far := cubeMesh(0)
	for i := 0; i < len(far.Vertices); i += 3 {
		far.Vertices[i] += 3
	}
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, far.Vertices...)
	m.Normals = append(m.Normals, far.Normals...)
	for _, ix := range far.Indices {
		m.Indices = append(m.Indices, ix+base)
	}
	s := mustPrep(t, BOTParams{Mesh: m, Orientation: CCW})

	t.Run("entry without exit", func(t *testing.T) {
		segs := shoot(s, v3.Vec{X: -1, Y: 0.5, Z: 0.25}, v3.Vec{X: 1})
		expectSpans(t, segs, 1e-9, [2]float64{1, 1}, [2]float64{4, 5})
	})

	t.Run("exit without entry", func(t *testing.T) {
		segs := shoot(s, v3.Vec{X: 2.5, Y: 0.5, Z: 0.25}, v3.Vec{X: -1})
		// The second cube lies behind the origin.
		expectSpans(t, segs, 1e-9, [2]float64{-1.5, -0.5}, [2]float64{2.5, 2.5})
		expectVec(t, "in normal", segs[1].In.Normal, v3.Vec{X: 1}, 1e-12)
		expectVec(t, "out normal", segs[1].Out.Normal, v3.Vec{X: -1}, 1e-12)
	})
}
