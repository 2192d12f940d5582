package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/rayweave/pkg/engine"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/rt"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/urfave/cli"
)

// EvalErrors carries every error reported while evaluating a scene file.
type EvalErrors struct {
	File   string
	Errors []engine.EvalError
}

func (e *EvalErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return fmt.Sprintf("%s: %s", e.File, strings.Join(msgs, "; "))
}

// sceneArg returns the single scene file argument of a command.
func sceneArg(ctx *cli.Context, extra int) (string, error) {
	if ctx.NArg() != 1+extra {
		return "", fmt.Errorf("%s: expected %d argument(s), got %d", ctx.Command.Name, 1+extra, ctx.NArg())
	}
	return ctx.Args().First(), nil
}

// loadSpec reads and evaluates a scene file.
func loadSpec(path string) (*rt.SceneSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		return nil, &EvalErrors{File: path, Errors: evalErrs}
	}
	if spec.Tree == nil {
		return nil, fmt.Errorf("%s: no (scene ...) form", path)
	}
	logger.Infof("loaded %s: %d solids", path, len(spec.Solids))
	return spec, nil
}

// loadScene evaluates and builds a scene file. Dropped solids are
// logged and the scene is still returned.
func loadScene(path string) (*rt.Scene, error) {
	spec, err := loadSpec(path)
	if err != nil {
		return nil, err
	}
	sc, diags, err := rt.Build(*spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, d := range diags {
		logger.Warningf("%s: solid %s", path, d)
	}
	return sc, nil
}

// parseVec parses "x,y,z".
func parseVec(s string) (v3.Vec, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return v3.Vec{}, fmt.Errorf("vector %q: expected x,y,z", s)
	}
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("vector %q: %w", s, err)
		}
		c[i] = v
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// solidName names the solid that produced a hit.
func solidName(sc *rt.Scene, id kernel.SoltabID) string {
	if st := sc.Soltab(id); st != nil {
		return st.Name
	}
	return "-"
}

func formatVec(v v3.Vec) string {
	return fmt.Sprintf("%.4g,%.4g,%.4g", v.X, v.Y, v.Z)
}

var errZeroDir = errors.New("ray direction must not be zero")
