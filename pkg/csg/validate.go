package csg

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks scene
// building or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks scene building
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. Path locates
// the node from the root: "root", "root.L", "root.L.R" and so on.
type ValidationError struct {
	Path     string
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Path, e.Message)
}

// Errors filters out warnings.
func Errors(findings []ValidationError) []ValidationError {
	var errs []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	return errs
}

// Validate checks tree against the solid names it may reference and
// returns every finding. An empty slice means the tree is valid. It is
// read-only and never mutates the tree.
func Validate(tree *Node, solids []string) []ValidationError {
	if tree == nil {
		return []ValidationError{{Message: "empty tree", Severity: SeverityError}}
	}
	var errs []ValidationError
	errs = append(errs, validateDAG(tree)...)
	if len(errs) > 0 {
		// The remaining checks walk the tree and would not terminate.
		return errs
	}
	errs = append(errs, validateShape(tree, "root")...)
	errs = append(errs, validateNames(solids)...)
	errs = append(errs, validateReferences(tree, solids)...)
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = on the current path, black (2) = done.
// A gray node reached again closes a cycle. Shared subtrees are fine.
func validateDAG(tree *Node) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Node]int)
	var errs []ValidationError

	var visit func(n *Node, path string) bool // true if a cycle was found
	visit = func(n *Node, path string) bool {
		if n == nil {
			return false
		}
		switch color[n] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  "cycle detected: node is its own ancestor",
				Severity: SeverityError,
			})
			return true
		}
		color[n] = gray
		if visit(n.Left, path+".L") || visit(n.Right, path+".R") {
			return true
		}
		color[n] = black
		return false
	}

	visit(tree, "root")
	return errs
}

// validateShape checks each node has the fields its Op requires.
func validateShape(n *Node, path string) []ValidationError {
	var errs []ValidationError
	switch n.Op {
	case OpLeaf:
		if n.Solid == "" {
			errs = append(errs, ValidationError{Path: path, Message: "leaf without a solid", Severity: SeverityError})
		}
		if n.Left != nil || n.Right != nil {
			errs = append(errs, ValidationError{Path: path, Message: "leaf with children", Severity: SeverityError})
		}
		return errs
	case OpUnion, OpIntersect, OpSubtract:
		if n.Solid != "" {
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%s node names solid %q", n.Op, n.Solid),
				Severity: SeverityWarning,
			})
		}
	default:
		return append(errs, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("unknown operator %s", n.Op),
			Severity: SeverityError,
		})
	}

	for _, c := range []struct {
		side string
		n    *Node
	}{{"L", n.Left}, {"R", n.Right}} {
		if c.n == nil {
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%s node missing %s operand", n.Op, c.side),
				Severity: SeverityError,
			})
			continue
		}
		errs = append(errs, validateShape(c.n, path+"."+c.side)...)
	}
	return errs
}

// validateNames checks that solid names are non-empty and unique.
func validateNames(solids []string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(solids))
	for i, name := range solids {
		if name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("solid %d has no name", i),
				Severity: SeverityError,
			})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate solid name %q", name),
				Severity: SeverityError,
			})
		}
		seen[name] = true
	}
	return errs
}

// validateReferences checks that every leaf names a known solid and
// warns about solids no leaf uses.
func validateReferences(tree *Node, solids []string) []ValidationError {
	var errs []ValidationError
	known := make(map[string]bool, len(solids))
	for _, s := range solids {
		known[s] = true
	}
	used := make(map[string]bool)

	var walk func(n *Node, path string)
	walk = func(n *Node, path string) {
		if n == nil {
			return
		}
		if n.Op == OpLeaf {
			if n.Solid != "" && !known[n.Solid] {
				errs = append(errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("reference to unknown solid %q", n.Solid),
					Severity: SeverityError,
				})
			}
			used[n.Solid] = true
			return
		}
		walk(n.Left, path+".L")
		walk(n.Right, path+".R")
	}
	walk(tree, "root")

	for _, s := range solids {
		if s != "" && !used[s] {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("solid %q is not referenced by the tree", s),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
