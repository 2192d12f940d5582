package kernel

import "fmt"

// GeometryInvalidError reports primitive parameters that cannot be
// prepped: degenerate axes, axes that are not perpendicular, empty
// meshes and the like. It never escapes scene building.
type GeometryInvalidError struct {
	Solid  string
	Kind   Kind
	Reason string
}

func (e *GeometryInvalidError) Error() string {
	if e.Solid == "" {
		return fmt.Sprintf("%s: invalid geometry: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s %q: invalid geometry: %s", e.Kind, e.Solid, e.Reason)
}

// Invalid is shorthand for building a GeometryInvalidError.
func Invalid(kind Kind, format string, args ...any) *GeometryInvalidError {
	return &GeometryInvalidError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// InvariantViolation reports a broken ordering guarantee in a segment or
// partition list. With a correct tree it never happens.
type InvariantViolation struct {
	What  string
	Index int
	A, B  float64
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s at %d (%g, %g)", e.What, e.Index, e.A, e.B)
}
