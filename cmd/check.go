package cmd

import (
	"errors"
	"fmt"

	"github.com/chazu/rayweave/pkg/csg"
	"github.com/chazu/rayweave/pkg/kernel"
	"github.com/chazu/rayweave/pkg/rt"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Check evaluates a scene, validates its tree and preps every solid,
// printing what would be dropped.
func Check(ctx *cli.Context) error {
	setupLogging(ctx)

	path, err := sceneArg(ctx, 0)
	if err != nil {
		return err
	}
	spec, err := loadSpec(path)
	if err != nil {
		return err
	}
	w := ctx.App.Writer

	names := make([]string, len(spec.Solids))
	for i, s := range spec.Solids {
		names[i] = s.Name
	}
	findings := csg.Validate(spec.Tree, names)
	if len(findings) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"Severity", "Path", "Finding"})
		for _, f := range findings {
			table.Append([]string{f.Severity.String(), f.Path, f.Message})
		}
		table.Render()
	}

	sc, diags, err := rt.Build(*spec)
	var treeErr *rt.TreeError
	if errors.As(err, &treeErr) {
		return fmt.Errorf("%s: %d tree error(s)", path, len(treeErr.Findings))
	}
	if err != nil {
		return err
	}

	dropped := make(map[string]error, len(diags))
	for _, d := range diags {
		dropped[d.Solid] = d.Err
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Solid", "Kind", "Status", "Bounds"})
	for i, s := range spec.Solids {
		status, bounds := "ok", "-"
		if err, ok := dropped[s.Name]; ok {
			status = "dropped: " + err.Error()
		} else if st := sc.Soltab(kernel.SoltabID(i)); st != nil {
			bounds = formatVec(st.Box.Min) + " .. " + formatVec(st.Box.Max)
		}
		table.Append([]string{s.Name, s.Params.Kind().String(), status, bounds})
	}
	table.SetFooter([]string{"", "", "REGIONS", fmt.Sprintf("%d", len(sc.Regions()))})
	table.Render()

	if len(diags) > 0 {
		return fmt.Errorf("%s: %d solid(s) dropped", path, len(diags))
	}
	fmt.Fprintf(w, "%s: ok, tree %s\n", path, spec.Tree)
	return nil
}
