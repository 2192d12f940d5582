package engine

import (
	"math"
	"testing"

	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/primitive"
	"github.com/chazu/rayweave/pkg/rt"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere "s" :radius 2)`,
			expect: `(sphere "s" "__kw_radius" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(tor "t" :r1 4 :r2 1)`,
			expect: `(tor "t" "__kw_r1" 4 "__kw_r2" 1)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(sdf-box "b" :size v)`,
			expect: `(sdf_box "b" "__kw_size" v)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 -1 0)`,
			expect: `(vec3 0 -1 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:full-line`,
			expect: `"__kw_full-line"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func evaluate(t *testing.T, source string) *rt.SceneSpec {
	t.Helper()
	spec, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if spec == nil {
		t.Fatal("expected non-nil spec")
	}
	return spec
}

func solid(t *testing.T, spec *rt.SceneSpec, name string) rt.SolidSpec {
	t.Helper()
	for _, s := range spec.Solids {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no solid named %q", name)
	return rt.SolidSpec{}
}

// shoot builds spec and returns the partition intervals along one ray.
func shoot(t *testing.T, spec *rt.SceneSpec, pt, dir v3.Vec) ([][2]float64, *rt.Scene, []rt.Partition) {
	t.Helper()
	sc, diags, err := rt.Build(*spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(diags) > 0 {
		t.Fatalf("Build dropped solids: %v", diags)
	}
	parts := append([]rt.Partition(nil), rt.NewResource(0).Shoot(sc, kernel.NewRay(pt, dir), rt.Options{})...)
	out := make([][2]float64, len(parts))
	for i, p := range parts {
		out[i] = [2]float64{p.In.Dist, p.Out.Dist}
	}
	return out, sc, parts
}

func expectIntervals(t *testing.T, got [][2]float64, tol float64, want ...[2]float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got intervals %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i][0]-want[i][0]) > tol || math.Abs(got[i][1]-want[i][1]) > tol {
			t.Errorf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Solid forms
// ---------------------------------------------------------------------------

func TestSimpleSphere(t *testing.T) {
	spec := evaluate(t, `(scene (sphere "ball" :center (vec3 1 2 3) :radius 2))`)

	if len(spec.Solids) != 1 {
		t.Fatalf("expected 1 solid, got %d", len(spec.Solids))
	}
	p, ok := solid(t, spec, "ball").Params.(primitive.SphereParams)
	if !ok {
		t.Fatalf("expected SphereParams, got %T", spec.Solids[0].Params)
	}
	if p.Center != (v3.Vec{X: 1, Y: 2, Z: 3}) || p.Radius != 2 {
		t.Errorf("sphere = %+v", p)
	}
	if spec.Tree.String() != "ball" {
		t.Errorf("tree = %v, want ball", spec.Tree)
	}
	if spec.Tol != kernel.DefaultTol() {
		t.Errorf("tol = %+v, want the default", spec.Tol)
	}
}

func TestVariableReference(t *testing.T) {
	spec := evaluate(t, `
(def r 19)
(def c (vec3 0 0 r))
(scene (sphere "s" :center c :radius r))
`)
	p := solid(t, spec, "s").Params.(primitive.SphereParams)
	if p.Radius != 19 || p.Center.Z != 19 {
		t.Errorf("sphere = %+v, want radius 19 at z 19", p)
	}
}

func TestAllSolidForms(t *testing.T) {
	spec := evaluate(t, `
(def parts (list
  (ell "e" :a (vec3 3 0 0) :b (vec3 0 2 0) :c (vec3 0 0 1))
  (tor "t" :center (vec3 0 0 5) :r1 4 :r2 1)
  (rpp "r" :min (vec3 -1 -1 -1) :max (vec3 1 1 1))
  (tgc "g" :height (vec3 0 0 2) :a (vec3 2 0 0) :b (vec3 0 1 0) :c (vec3 1 0 0) :d (vec3 0 1 0))
  (rcc "rc" :base (vec3 0 0 -1) :height (vec3 0 0 2) :radius 1)
  (trc "k" :height (vec3 0 0 2) :r1 2 :r2 0)
  (arb8 "a" (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0) (vec3 0 1 0)
            (vec3 0 0 1) (vec3 1 0 1) (vec3 1 1 1) (vec3 0 1 1))
  (sdf-box "sb" :size (vec3 2 2 2))
  (sdf-cylinder "sc" :height 4 :radius 1)
  (sdf-sphere "ss" :radius 1)))
(scene (sphere "anchor" :radius 1))
`)
	tests := []struct {
		name string
		kind kernel.Kind
	}{
		{"e", kernel.KindEllipsoid},
		{"t", kernel.KindTorus},
		{"r", kernel.KindARB8},
		{"g", kernel.KindTGC},
		{"rc", kernel.KindTGC},
		{"k", kernel.KindTGC},
		{"a", kernel.KindARB8},
		{"sb", kernel.KindSDF},
		{"sc", kernel.KindSDF},
		{"ss", kernel.KindSDF},
		{"anchor", kernel.KindSphere},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := solid(t, spec, tt.name).Params.Kind(); got != tt.kind {
				t.Errorf("kind = %s, want %s", got, tt.kind)
			}
		})
	}

	tor := solid(t, spec, "t").Params.(primitive.TorParams)
	if tor.H != (v3.Vec{Z: 1}) {
		t.Errorf("torus axis = %v, want the default +z", tor.H)
	}
}

func TestConeFormsShoot(t *testing.T) {
	spec := evaluate(t, `(scene (union (rcc "c" :base (vec3 0 0 -1) :height (vec3 0 0 2) :radius 1)
                                   (trc "k" :base (vec3 10 0 -1) :height (vec3 0 0 2) :r1 2 :r2 1)))`)
	got, _, _ := shoot(t, spec, v3.Vec{X: -5}, v3.Vec{X: 1})
	expectIntervals(t, got, 1e-9, [2]float64{4, 6}, [2]float64{13.5, 16.5})
}

func TestSDFFormsShoot(t *testing.T) {
	spec := evaluate(t, `(scene (union (sdf-box "b" :size (vec3 2 2 2))
                                   (place (sdf-cylinder "c" :height 4 :radius 1) :at (vec3 10 1 1))))`)
	got, _, _ := shoot(t, spec, v3.Vec{X: -5, Y: 1, Z: 1}, v3.Vec{X: 1})
	expectIntervals(t, got, 1e-4, [2]float64{5, 7}, [2]float64{14, 16})
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

func TestPlace(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		pt, dir  v3.Vec
		interval [2]float64
	}{
		{
			name:     "translate",
			source:   `(scene (place (sphere "s" :radius 1) :at (vec3 5 0 0)))`,
			dir:      v3.Vec{X: 1},
			interval: [2]float64{4, 6},
		},
		{
			name:     "rotate",
			source:   `(scene (place (rpp "bar" :min (vec3 0 -0.5 -0.5) :max (vec3 4 0.5 0.5)) :rotate (vec3 0 0 90)))`,
			pt:       v3.Vec{Y: -10},
			dir:      v3.Vec{Y: 1},
			interval: [2]float64{10, 14},
		},
		{
			name:     "rotate then translate",
			source:   `(scene (place (rpp "bar" :min (vec3 0 -0.5 -0.5) :max (vec3 4 0.5 0.5)) :at (vec3 1 0 0) :rotate (vec3 0 0 90)))`,
			pt:       v3.Vec{X: 1, Y: -10},
			dir:      v3.Vec{Y: 1},
			interval: [2]float64{10, 14},
		},
		{
			name: "placing a tree moves every solid once",
			source: `
(def s (sphere "s" :radius 1))
(scene (place (union s (union s (sphere "t" :radius 2))) :at (vec3 5 0 0)))`,
			dir:      v3.Vec{X: 1},
			interval: [2]float64{3, 7},
		},
		{
			name: "placements compose",
			source: `
(def s (place (sphere "s" :radius 1) :at (vec3 2 0 0)))
(scene (place s :at (vec3 3 0 0)))`,
			dir:      v3.Vec{X: 1},
			interval: [2]float64{4, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := shoot(t, evaluate(t, tt.source), tt.pt, tt.dir)
			expectIntervals(t, got, 1e-9, tt.interval)
		})
	}
}

// ---------------------------------------------------------------------------
// Booleans, regions and the scene form
// ---------------------------------------------------------------------------

func TestBooleanForms(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`(union a b)`, "(u a b)"},
		{`(union a b c)`, "(u (u a b) c)"},
		{`(intersect a b)`, "(+ a b)"},
		{`(subtract a b c)`, "(- (- a b) c)"},
		{`(subtract (union a b) (intersect b c))`, "(- (u a b) (+ b c))"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			spec := evaluate(t, `
(def a (sphere "a" :radius 1))
(def b (sphere "b" :radius 2))
(def c (sphere "c" :radius 3))
(scene `+tt.source+`)`)
			if got := spec.Tree.String(); got != tt.want {
				t.Errorf("tree = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSubtractScene(t *testing.T) {
	spec := evaluate(t, `
; a box with a spherical void
(scene
  (region "part"
    (subtract (rpp "box" :min (vec3 -2 -2 -2) :max (vec3 2 2 2))
              (sphere "void" :radius 1))))
`)
	got, sc, parts := shoot(t, spec, v3.Vec{X: -10}, v3.Vec{X: 1})
	expectIntervals(t, got, 1e-9, [2]float64{8, 9}, [2]float64{11, 12})

	if regions := sc.Regions(); len(regions) != 1 || regions[0] != "part" {
		t.Errorf("regions = %v, want [part]", regions)
	}
	// The first partition leaves through the void, whose normal is
	// flipped to face out of the material.
	if !parts[0].Out.Flip || parts[0].Out.Normal.Sub(v3.Vec{X: 1}).Length() > 1e-9 {
		t.Errorf("exit through the void = %+v, want a flipped +x normal", parts[0].Out)
	}
}

func TestRegionKeepsInnerRegions(t *testing.T) {
	spec := evaluate(t, `
(scene (region "outer"
  (union (region "inner" (sphere "a" :radius 1))
         (sphere "b" :center (vec3 5 0 0) :radius 1))))`)
	if got, want := spec.Tree.String(), "(u a@inner b@outer)"; got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestSceneTolerances(t *testing.T) {
	spec := evaluate(t, `(scene (sphere "s" :radius 1) :dist 0.01)`)
	if spec.Tol.Dist != 0.01 || spec.Tol.Perp != kernel.DefaultTol().Perp {
		t.Errorf("tol = %+v, want dist 0.01 and the default perp", spec.Tol)
	}
}

func TestNoSceneForm(t *testing.T) {
	spec := evaluate(t, `(sphere "s" :radius 1)`)
	if spec.Tree != nil {
		t.Errorf("tree = %v, want nil", spec.Tree)
	}
	if len(spec.Solids) != 1 {
		t.Errorf("expected the solid to be recorded, got %d solids", len(spec.Solids))
	}
}

// ---------------------------------------------------------------------------
// Facetize
// ---------------------------------------------------------------------------

func TestFacetize(t *testing.T) {
	spec := evaluate(t, `
(scene (facetize "mesh" (place (sphere "s" :radius 1) :at (vec3 5 0 0)) :detail 3))`)

	if len(spec.Solids) != 1 {
		t.Fatalf("expected the source solid to be consumed, got %d solids", len(spec.Solids))
	}
	bot, ok := solid(t, spec, "mesh").Params.(primitive.BOTParams)
	if !ok {
		t.Fatalf("expected BOTParams, got %T", spec.Solids[0].Params)
	}
	if bot.Orientation != primitive.CCW || bot.Mesh.IsEmpty() {
		t.Errorf("mesh = %d triangles, %s", bot.Mesh.TriangleCount(), bot.Orientation)
	}
	// The placement is baked into the shell.
	got, _, _ := shoot(t, spec, v3.Vec{Y: 0.01, Z: 0.02}, v3.Vec{X: 1})
	expectIntervals(t, got, 0.02, [2]float64{4, 6})
}

func TestFacetizeKeepsReferencedSource(t *testing.T) {
	spec := evaluate(t, `
(def s (sphere "s" :radius 1))
(scene (union s (place (facetize "copy" s) :at (vec3 5 0 0))))`)
	if len(spec.Solids) != 2 {
		t.Errorf("expected both solids, got %d", len(spec.Solids))
	}
	if errs := csg.Errors(csg.Validate(spec.Tree, []string{"s", "copy"})); len(errs) > 0 {
		t.Errorf("tree invalid: %v", errs)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing radius", `(sphere "s")`},
		{"missing name", `(sphere :radius 1)`},
		{"name not a string", `(sphere 7 :radius 1)`},
		{"radius not a number", `(sphere "s" :radius "big")`},
		{"duplicate name", `(sphere "s" :radius 1) (sphere "s" :radius 2)`},
		{"center not a vec3", `(sphere "s" :center 1 :radius 1)`},
		{"vec3 arity", `(vec3 1 2)`},
		{"ell missing axis", `(ell "e" :a (vec3 1 0 0) :b (vec3 0 1 0))`},
		{"arb8 short", `(arb8 "a" (vec3 0 0 0) (vec3 1 0 0))`},
		{"rpp missing max", `(rpp "r" :min (vec3 0 0 0))`},
		{"sdf box negative", `(sdf-box "b" :size (vec3 -1 1 1))`},
		{"union of one", `(union (sphere "s" :radius 1))`},
		{"union of a number", `(union (sphere "s" :radius 1) 3)`},
		{"facetize a tree", `(facetize "m" (union (sphere "a" :radius 1) (sphere "b" :radius 1)))`},
		{"facetize invalid", `(facetize "m" (sphere "s" :radius -1))`},
		{"region without tree", `(region "r")`},
		{"scene twice", `(def s (sphere "s" :radius 1)) (scene s) (scene s)`},
		{"scene bad tolerance", `(scene (sphere "s" :radius 1) :dist 0)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if spec != nil {
				t.Error("expected nil spec")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
		})
	}
}

func TestInvalidParamsReachBuild(t *testing.T) {
	// Geometry checks belong to scene building, so a zero-radius sphere
	// evaluates and is then dropped with a diagnostic.
	spec := evaluate(t, `(scene (union (sphere "bad" :radius 0) (sphere "good" :radius 1)))`)
	sc, diags, err := rt.Build(*spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(diags) != 1 || diags[0].Solid != "bad" {
		t.Errorf("diagnostics = %v, want one for bad", diags)
	}
	parts := rt.NewResource(0).Shoot(sc, kernel.NewRay(v3.Vec{X: -5}, v3.Vec{X: 1}), rt.Options{})
	if len(parts) != 1 {
		t.Errorf("got %d partitions, want 1", len(parts))
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	spec := evaluate(t, `
(def r (* 2 1.5))
(scene (sphere "s" :radius r))`)
	if p := solid(t, spec, "s").Params.(primitive.SphereParams); p.Radius != 3 {
		t.Errorf("radius = %g, want 3", p.Radius)
	}
}
