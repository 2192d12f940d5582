package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/kernel/sdfx"
	"github.com/chazu/rayweave/pkg/primitive"
	"github.com/chazu/rayweave/pkg/rt"
	"github.com/chazu/rayweave/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpTree wraps a boolean tree. Solid constructors return a leaf.
type sexpTree struct {
	node *csg.Node
}

func (t *sexpTree) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(tree %s)", t.node)
}
func (t *sexpTree) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	form       string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(form string, args []zygo.Sexp) kwArgs {
	result := kwArgs{form: form, kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// float returns keyword key as a number, def when it is absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", a.form, key, err)
	}
	return f, nil
}

// mustFloat is float for a keyword the form cannot do without.
func (a kwArgs) mustFloat(key string) (float64, error) {
	if _, ok := a.kw[key]; !ok {
		return 0, fmt.Errorf("%s: missing :%s", a.form, key)
	}
	return a.float(key, 0)
}

// vec returns keyword key as a vec3, def when it is absent.
func (a kwArgs) vec(key string, def v3.Vec) (v3.Vec, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %s: %w", a.form, key, err)
	}
	return vec, nil
}

func (a kwArgs) mustVec(key string) (v3.Vec, error) {
	if _, ok := a.kw[key]; !ok {
		return v3.Vec{}, fmt.Errorf("%s: missing :%s", a.form, key)
	}
	return a.vec(key, v3.Vec{})
}

// name returns the leading positional string argument.
func (a kwArgs) name() (string, error) {
	if len(a.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", a.form)
	}
	s, err := toString(a.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", a.form, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toTree(s zygo.Sexp) (*csg.Node, error) {
	if t, ok := s.(*sexpTree); ok {
		return t.node, nil
	}
	return nil, fmt.Errorf("expected solid or tree, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Scene accumulation
// ---------------------------------------------------------------------------

// sceneBuilder collects what the builtins create during one evaluation.
type sceneBuilder struct {
	solids   []rt.SolidSpec
	index    map[string]int  // solid name -> position in solids
	consumed map[string]bool // solids fed to facetize
	tree     *csg.Node
	tol      kernel.Tol
	sdf      *sdfx.Builder
}

func newSceneBuilder() *sceneBuilder {
	return &sceneBuilder{
		index:    make(map[string]int),
		consumed: make(map[string]bool),
		sdf:      sdfx.New(),
	}
}

// addSolid registers a solid at the identity placement and returns its
// leaf.
func (b *sceneBuilder) addSolid(form, name string, p primitive.Params) (zygo.Sexp, error) {
	if name == "" {
		return zygo.SexpNull, fmt.Errorf("%s: empty solid name", form)
	}
	if _, dup := b.index[name]; dup {
		return zygo.SexpNull, fmt.Errorf("%s: duplicate solid name %q", form, name)
	}
	b.index[name] = len(b.solids)
	b.solids = append(b.solids, rt.SolidSpec{Name: name, Params: p, Placement: sdf.Identity3d()})
	return &sexpTree{node: csg.Leaf(name)}, nil
}

// place composes m onto the placement of every distinct solid under n.
func (b *sceneBuilder) place(n *csg.Node, m sdf.M44) {
	seen := make(map[string]bool)
	for _, leaf := range n.Leaves() {
		if seen[leaf.Solid] {
			continue
		}
		seen[leaf.Solid] = true
		if i, ok := b.index[leaf.Solid]; ok {
			b.solids[i].Placement = m.Mul(b.solids[i].Placement)
		}
	}
}

// spec returns the accumulated scene. Solids consumed by facetize are
// left out unless the final tree still references them.
func (b *sceneBuilder) spec() *rt.SceneSpec {
	used := make(map[string]bool)
	if b.tree != nil {
		for _, leaf := range b.tree.Leaves() {
			used[leaf.Solid] = true
		}
	}
	out := &rt.SceneSpec{Tree: b.tree, Tol: b.tol}
	for _, s := range b.solids {
		if b.consumed[s.Name] && !used[s.Name] {
			continue
		}
		out.Solids = append(out.Solids, s)
	}
	return out
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(a kwArgs) (zygo.Sexp, error)

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. The builtins populate b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals and
// kebab-case names such as sdf-box reach zygomys as sdf_box.
func registerBuiltins(env *zygo.Zlisp, b *sceneBuilder) {
	add := func(name string, fn builtin) {
		form := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			return fn(parseArgs(form, args))
		})
	}

	// (vec3 1 2 3)
	add("vec3", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 3 || len(a.kw) != 0 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(a.positional)+len(a.kw))
		}
		var c [3]float64
		for i, s := range a.positional {
			f, err := toFloat64(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// Analytic primitives
	// -----------------------------------------------------------------------

	// (sphere "s" :center (vec3 0 0 0) :radius 2)
	add("sphere", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		center, err := a.vec("center", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := a.mustFloat("radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.addSolid(a.form, name, primitive.SphereParams{Center: center, Radius: r})
	})

	// (ell "e" :center v :a v :b v :c v)
	add("ell", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		p := primitive.EllParams{}
		if p.V, err = a.vec("center", v3.Vec{}); err != nil {
			return zygo.SexpNull, err
		}
		for _, ax := range []struct {
			key string
			dst *v3.Vec
		}{{"a", &p.A}, {"b", &p.B}, {"c", &p.C}} {
			if *ax.dst, err = a.mustVec(ax.key); err != nil {
				return zygo.SexpNull, err
			}
		}
		return b.addSolid(a.form, name, p)
	})

	// (tor "t" :center v :axis (vec3 0 0 1) :r1 4 :r2 1)
	add("tor", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		p := primitive.TorParams{}
		if p.V, err = a.vec("center", v3.Vec{}); err != nil {
			return zygo.SexpNull, err
		}
		if p.H, err = a.vec("axis", v3.Vec{Z: 1}); err != nil {
			return zygo.SexpNull, err
		}
		if p.R1, err = a.mustFloat("r1"); err != nil {
			return zygo.SexpNull, err
		}
		if p.R2, err = a.mustFloat("r2"); err != nil {
			return zygo.SexpNull, err
		}
		return b.addSolid(a.form, name, p)
	})

	// (tgc "g" :base v :height v :a v :b v :c v :d v)
	add("tgc", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		p := primitive.TGCParams{}
		if p.V, err = a.vec("base", v3.Vec{}); err != nil {
			return zygo.SexpNull, err
		}
		for _, ax := range []struct {
			key string
			dst *v3.Vec
		}{{"height", &p.H}, {"a", &p.A}, {"b", &p.B}, {"c", &p.C}, {"d", &p.D}} {
			if *ax.dst, err = a.mustVec(ax.key); err != nil {
				return zygo.SexpNull, err
			}
		}
		return b.addSolid(a.form, name, p)
	})

	// (rcc "c" :base v :height (vec3 0 0 10) :radius 2)
	add("rcc", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		base, err := a.vec("base", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := a.mustVec("height")
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := a.mustFloat("radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.addSolid(a.form, name, primitive.RCC(base, h, r))
	})

	// (trc "k" :base v :height v :r1 3 :r2 1)
	add("trc", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		base, err := a.vec("base", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := a.mustVec("height")
		if err != nil {
			return zygo.SexpNull, err
		}
		r1, err := a.mustFloat("r1")
		if err != nil {
			return zygo.SexpNull, err
		}
		r2, err := a.mustFloat("r2")
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.addSolid(a.form, name, primitive.TRC(base, h, r1, r2))
	})

	// (rpp "b" :min (vec3 -1 -1 -1) :max (vec3 1 1 1))
	add("rpp", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		lo, err := a.mustVec("min")
		if err != nil {
			return zygo.SexpNull, err
		}
		hi, err := a.mustVec("max")
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.addSolid(a.form, name, primitive.RPP(lo, hi))
	})

	// (arb8 "a" p0 p1 p2 p3 p4 p5 p6 p7)
	add("arb8", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(a.positional) != 9 {
			return zygo.SexpNull, fmt.Errorf("arb8 requires a name and 8 points, got %d points", len(a.positional)-1)
		}
		var p primitive.ARB8Params
		for i := range p.Pts {
			if p.Pts[i], err = toVec3(a.positional[i+1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("arb8: point %d: %w", i, err)
			}
		}
		return b.addSolid(a.form, name, p)
	})

	// -----------------------------------------------------------------------
	// Implicit primitives
	// -----------------------------------------------------------------------

	// (sdf-box "b" :size (vec3 10 20 5)), minimum corner at the origin
	add("sdf_box", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		size, err := a.mustVec("size")
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := b.sdf.Box(size.X, size.Y, size.Z)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", a.form, err)
		}
		return b.addSolid(a.form, name, p)
	})

	// (sdf-cylinder "c" :height 10 :radius 2), along Z about the origin
	add("sdf_cylinder", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := a.mustFloat("height")
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := a.mustFloat("radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := b.sdf.Cylinder(h, r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", a.form, err)
		}
		return b.addSolid(a.form, name, p)
	})

	// (sdf-sphere "s" :radius 2)
	add("sdf_sphere", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := a.mustFloat("radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := b.sdf.Sphere(r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", a.form, err)
		}
		return b.addSolid(a.form, name, p)
	})

	// (facetize "mesh" solid :detail 3)
	add("facetize", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(a.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("facetize requires a name and one solid")
		}
		src, err := toTree(a.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("facetize: %w", err)
		}
		if src.Op != csg.OpLeaf {
			return zygo.SexpNull, fmt.Errorf("facetize: expected a single solid, got %s", src)
		}
		detail, err := a.float("detail", tessellate.DefaultDetail)
		if err != nil {
			return zygo.SexpNull, err
		}
		s := b.solids[b.index[src.Solid]]
		bot, err := tessellate.Facetize(s.Params, s.Placement, int(detail))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("facetize %q: %w", s.Name, err)
		}
		b.consumed[s.Name] = true
		return b.addSolid(a.form, name, bot)
	})

	// -----------------------------------------------------------------------
	// (place solid :at (vec3 0 0 5) :rotate (vec3 0 0 90))
	//
	// Rotation is in degrees about X, then Y, then Z, applied before the
	// translation. Placing a tree moves every solid it references.
	// -----------------------------------------------------------------------
	add("place", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("place requires one solid or tree")
		}
		n, err := toTree(a.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		at, err := a.vec("at", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		rot, err := a.vec("rotate", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		b.place(n, primitive.Place(at, rot))
		return a.positional[0], nil
	})

	// -----------------------------------------------------------------------
	// Booleans: (union a b ...), (intersect a b ...), (subtract a b ...)
	// fold left, so (subtract a b c) removes b and c from a.
	// -----------------------------------------------------------------------
	for _, op := range []struct {
		name string
		fn   func(l, r *csg.Node) *csg.Node
	}{
		{"union", csg.Union},
		{"intersect", csg.Intersect},
		{"subtract", csg.Subtract},
	} {
		add(op.name, func(a kwArgs) (zygo.Sexp, error) {
			if len(a.positional) < 2 || len(a.kw) != 0 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least two operands", a.form)
			}
			var acc *csg.Node
			for i, s := range a.positional {
				n, err := toTree(s)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", a.form, i, err)
				}
				if acc == nil {
					acc = n
				} else {
					acc = op.fn(acc, n)
				}
			}
			return &sexpTree{node: acc}, nil
		})
	}

	// (region "wheel" tree)
	add("region", func(a kwArgs) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		if name == "" || len(a.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("region requires a name and one tree")
		}
		n, err := toTree(a.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("region: %w", err)
		}
		return &sexpTree{node: csg.InRegion(name, n)}, nil
	})

	// (scene tree :dist 0.0005 :perp 1e-6)
	add("scene", func(a kwArgs) (zygo.Sexp, error) {
		if b.tree != nil {
			return zygo.SexpNull, fmt.Errorf("scene: already defined")
		}
		if len(a.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("scene requires one tree")
		}
		n, err := toTree(a.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scene: %w", err)
		}
		tol := kernel.DefaultTol()
		if tol.Dist, err = a.float("dist", tol.Dist); err != nil {
			return zygo.SexpNull, err
		}
		if tol.Perp, err = a.float("perp", tol.Perp); err != nil {
			return zygo.SexpNull, err
		}
		if tol.Dist <= 0 || tol.Perp <= 0 {
			return zygo.SexpNull, fmt.Errorf("scene: tolerances must be positive")
		}
		b.tree, b.tol = n, tol
		return a.positional[0], nil
	})
}
