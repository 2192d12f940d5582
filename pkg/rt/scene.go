package rt

import (
	"fmt"
	"strings"

	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/log"
	"github.com/chazu/rayweave/pkg/primitive"
	"github.com/deadsy/sdfx/sdf"
)

var logger = log.New("rt")

// SolidSpec is one primitive instance handed to Build. A zero Placement
// means the identity.
type SolidSpec struct {
	Name      string
	Params    primitive.Params
	Placement sdf.M44
}

// SceneSpec is everything Build needs. A zero Tol means
// kernel.DefaultTol().
type SceneSpec struct {
	Solids []SolidSpec
	Tree   *csg.Node
	Tol    kernel.Tol
}

// Diagnostic reports a primitive that was left out of the scene.
type Diagnostic struct {
	Solid string
	Err   error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.Solid, d.Err)
}

// TreeError carries the error findings of csg.Validate.
type TreeError struct {
	Findings []csg.ValidationError
}

func (e *TreeError) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Error()
	}
	return "invalid tree: " + strings.Join(msgs, "; ")
}

// node is one entry of the flattened tree. Children are indices into
// Scene.nodes.
type node struct {
	op          csg.Op
	left, right int32
	soltab      kernel.SoltabID // leaf only; -1 when the solid was dropped
	region      kernel.RegionID // leaf only
}

// Scene is the read-only product of Build: the solid table, the region
// table and the flattened boolean tree. It is safe for concurrent use by
// any number of Resources.
type Scene struct {
	tol     kernel.Tol
	soltabs []*kernel.Soltab // indexed by SoltabID, nil when dropped
	names   []string         // indexed by SoltabID
	regions []string         // indexed by RegionID
	nodes   []node
	root    int32
	bounds  sdf.Box3
}

// Build preps every solid and flattens the tree. Solids that fail to
// prep are dropped with a Diagnostic and evaluate as empty; the scene is
// still usable. The error is reserved for trees that fail validation.
func Build(spec SceneSpec) (*Scene, []Diagnostic, error) {
	names := make([]string, len(spec.Solids))
	for i, s := range spec.Solids {
		names[i] = s.Name
	}
	findings := csg.Validate(spec.Tree, names)
	for _, f := range findings {
		if f.Severity == csg.SeverityWarning {
			logger.Warningf("scene: %s", f.Error())
		}
	}
	if errs := csg.Errors(findings); len(errs) > 0 {
		return nil, nil, &TreeError{Findings: errs}
	}

	sc := &Scene{
		tol:     spec.Tol,
		soltabs: make([]*kernel.Soltab, len(spec.Solids)),
		names:   names,
	}
	if sc.tol == (kernel.Tol{}) {
		sc.tol = kernel.DefaultTol()
	}

	var diags []Diagnostic
	byName := make(map[string]kernel.SoltabID, len(spec.Solids))
	first := true
	for i, s := range spec.Solids {
		id := kernel.SoltabID(i)
		byName[s.Name] = id
		xform := s.Placement
		if xform == (sdf.M44{}) {
			xform = sdf.Identity3d()
		}
		solver, err := primitive.Prep(s.Name, s.Params, xform, sc.tol)
		if err != nil {
			logger.Warningf("dropping solid %q: %v", s.Name, err)
			diags = append(diags, Diagnostic{Solid: s.Name, Err: err})
			continue
		}
		st := kernel.NewSoltab(id, s.Name, solver)
		sc.soltabs[i] = st
		if first {
			sc.bounds, first = st.Box, false
		} else {
			sc.bounds = sdf.Box3{Min: sc.bounds.Min.Min(st.Box.Min), Max: sc.bounds.Max.Max(st.Box.Max)}
		}
	}

	regionIDs := make(map[string]kernel.RegionID)
	sc.root = sc.flatten(spec.Tree, byName, regionIDs)

	logger.Infof("scene built: %d solids (%d dropped), %d regions, %d nodes",
		len(spec.Solids), len(diags), len(sc.regions), len(sc.nodes))
	return sc, diags, nil
}

// flatten appends n's subtree to sc.nodes, children before parents, and
// returns n's index. Shared subtrees are flattened once per reference.
func (sc *Scene) flatten(n *csg.Node, byName map[string]kernel.SoltabID, regionIDs map[string]kernel.RegionID) int32 {
	if n.Op == csg.OpLeaf {
		name := n.RegionName()
		rid, ok := regionIDs[name]
		if !ok {
			rid = kernel.RegionID(len(sc.regions))
			regionIDs[name] = rid
			sc.regions = append(sc.regions, name)
		}
		id := byName[n.Solid]
		if sc.soltabs[id] == nil {
			id = -1
		}
		sc.nodes = append(sc.nodes, node{op: csg.OpLeaf, soltab: id, region: rid, left: -1, right: -1})
		return int32(len(sc.nodes) - 1)
	}
	l := sc.flatten(n.Left, byName, regionIDs)
	r := sc.flatten(n.Right, byName, regionIDs)
	sc.nodes = append(sc.nodes, node{op: n.Op, left: l, right: r, soltab: -1, region: kernel.NoRegion})
	return int32(len(sc.nodes) - 1)
}

// Tol returns the scene tolerances.
func (sc *Scene) Tol() kernel.Tol { return sc.tol }

// Soltab returns the solid with the given id, or nil when it was
// dropped or id is out of range.
func (sc *Scene) Soltab(id kernel.SoltabID) *kernel.Soltab {
	if id < 0 || int(id) >= len(sc.soltabs) {
		return nil
	}
	return sc.soltabs[id]
}

// SolidNames lists every solid name in SoltabID order, dropped ones
// included.
func (sc *Scene) SolidNames() []string { return sc.names }

// Region returns the name of region id.
func (sc *Scene) Region(id kernel.RegionID) string {
	if id < 0 || int(id) >= len(sc.regions) {
		return ""
	}
	return sc.regions[id]
}

// Regions lists region names in RegionID order.
func (sc *Scene) Regions() []string { return sc.regions }

// Bounds is the union of the bounding boxes of every live solid. It is
// the zero box when nothing survived prep.
func (sc *Scene) Bounds() sdf.Box3 { return sc.bounds }
