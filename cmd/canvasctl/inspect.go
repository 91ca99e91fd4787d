package main

import (
	"fmt"
	"strconv"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/spf13/cobra"
)

func inspectCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List the positioned objects of the workflow and any warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.workflowPath == "" {
				return fmt.Errorf("no workflow given, use --workflow")
			}
			wf, err := graph.ReadFile(g.workflowPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %d nodes, %d connections, %d annotations, %d port-bars\n\n",
				brand.Sprint(g.workflowPath), len(wf.Nodes), len(wf.Connections), len(wf.Annotations), len(wf.PortBars))

			snap := wf.Snapshot()
			rows := make([][]string, 0, snap.Len())
			for _, o := range snap.Objects {
				rows = append(rows, []string{
					string(o.ID),
					o.Kind.String(),
					formatFloat(o.Bounds.X),
					formatFloat(o.Bounds.Y),
					formatFloat(o.Bounds.Width),
					formatFloat(o.Bounds.Height),
				})
			}
			table(out, []string{"ID", "KIND", "X", "Y", "W", "H"}, rows)

			// Decode already rejected errors; only warnings remain.
			findings := graph.Validate(wf)
			if len(findings) > 0 {
				fmt.Fprintln(out)
			}
			for _, f := range findings {
				warn.Fprintf(out, "  ⚠ %s\n", f.Error())
			}
			return nil
		},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
