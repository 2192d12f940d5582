// Package csg provides the boolean tree model: leaves that reference
// solids by name and binary union, intersect and subtract nodes. Trees
// are immutable once built; helpers that change a tree return a copy.
package csg

import (
	"fmt"
	"strings"
)

// Op is the node variant.
type Op int

const (
	OpLeaf Op = iota
	OpUnion
	OpIntersect
	OpSubtract
)

func (o Op) String() string {
	switch o {
	case OpLeaf:
		return "leaf"
	case OpUnion:
		return "union"
	case OpIntersect:
		return "intersect"
	case OpSubtract:
		return "subtract"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Node is one tree node. Leaves carry Solid and Region; operator nodes
// carry Left and Right.
type Node struct {
	Op     Op
	Solid  string // leaf only: name of the referenced solid
	Region string // leaf only: region the solid belongs to, "" = its own
	Left   *Node
	Right  *Node
}

// Leaf references the named solid.
func Leaf(solid string) *Node {
	return &Node{Op: OpLeaf, Solid: solid}
}

// Union is inside where either operand is.
func Union(l, r *Node) *Node {
	return &Node{Op: OpUnion, Left: l, Right: r}
}

// Intersect is inside where both operands are.
func Intersect(l, r *Node) *Node {
	return &Node{Op: OpIntersect, Left: l, Right: r}
}

// Subtract is inside where l is and r is not.
func Subtract(l, r *Node) *Node {
	return &Node{Op: OpSubtract, Left: l, Right: r}
}

// UnionAll folds nodes left to right with Union. It returns nil for no
// nodes.
func UnionAll(nodes ...*Node) *Node {
	var acc *Node
	for _, n := range nodes {
		if acc == nil {
			acc = n
			continue
		}
		acc = Union(acc, n)
	}
	return acc
}

// InRegion returns a copy of n whose leaves without a region belong to
// region name. Leaves already in a region keep it.
func InRegion(name string, n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	if c.Op == OpLeaf {
		if c.Region == "" {
			c.Region = name
		}
		return &c
	}
	c.Left = InRegion(name, n.Left)
	c.Right = InRegion(name, n.Right)
	return &c
}

// RegionName is the region a leaf reports: its Region, or the solid name
// when it has none.
func (n *Node) RegionName() string {
	if n.Region != "" {
		return n.Region
	}
	return n.Solid
}

// Leaves returns the leaves in left-to-right order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(m *Node) bool {
		if m.Op == OpLeaf {
			out = append(out, m)
		}
		return true
	})
	return out
}

// Walk visits n and its descendants depth first, left before right. fn
// returning false prunes the subtree below the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	n.Left.Walk(fn)
	n.Right.Walk(fn)
}

// Depth is the number of nodes on the longest root-to-leaf path.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	l, r := n.Left.Depth(), n.Right.Depth()
	if r > l {
		l = r
	}
	return l + 1
}

// String renders the tree in prefix form, e.g. (- a (u b c)).
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	switch n.Op {
	case OpLeaf:
		sb.WriteString(n.Solid)
		if n.Region != "" {
			sb.WriteString("@")
			sb.WriteString(n.Region)
		}
		return
	case OpUnion:
		sb.WriteString("(u ")
	case OpIntersect:
		sb.WriteString("(+ ")
	case OpSubtract:
		sb.WriteString("(- ")
	default:
		fmt.Fprintf(sb, "(%s ", n.Op)
	}
	n.Left.write(sb)
	sb.WriteByte(' ')
	n.Right.write(sb)
	sb.WriteByte(')')
}
