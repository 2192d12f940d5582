package primitive

import (
	"errors"
	"fmt"

	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
)

// Prep validates p under the placement transform xform and returns the
// solver for it. Invalid parameters yield a *kernel.GeometryInvalidError
// naming the solid.
func Prep(name string, p Params, xform sdf.M44, tol kernel.Tol) (kernel.Solver, error) {
	var (
		s   kernel.Solver
		err error
	)
	switch p := p.(type) {
	case SphereParams:
		s, err = prepSphere(p, xform, tol)
	case EllParams:
		s, err = prepEll(p, xform, tol)
	case TorParams:
		s, err = prepTor(p, xform, tol)
	case TGCParams:
		s, err = prepTGC(p, xform, tol)
	case ARB8Params:
		s, err = prepARB8(p, xform, tol)
	case BOTParams:
		s, err = prepBOT(p, xform, tol)
	case SDFParams:
		s, err = prepSDF(p, xform, tol)
	case nil:
		return nil, fmt.Errorf("prep %q: no parameters", name)
	default:
		return nil, fmt.Errorf("prep %q: unsupported parameter type %T", name, p)
	}
	if err != nil {
		var gie *kernel.GeometryInvalidError
		if errors.As(err, &gie) {
			gie.Solid = name
		}
		return nil, err
	}
	return s, nil
}
