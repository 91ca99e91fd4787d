package main

import (
	"fmt"
	"os"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/script"
	"github.com/spf13/cobra"
)

func runCmd(g *globalOptions) *cobra.Command {
	var (
		expr     string
		savePath string
	)
	cmd := &cobra.Command{
		Use:   "run [script.lisp]",
		Short: "Run a canvas script against the workflow",
		Example: `  canvasctl run -w workflow.json drag.lisp
  canvasctl run -w workflow.json -e '(nearest "root:1" :right)'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			switch {
			case expr != "" && len(args) > 0:
				return fmt.Errorf("give either a script file or --eval, not both")
			case expr != "":
				source = expr
			case len(args) == 1:
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("reading script: %w", err)
				}
				source = string(data)
			default:
				return fmt.Errorf("nothing to run, give a script file or --eval")
			}

			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			res, evalErrs, err := script.New(s.canvas).Evaluate(source)
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					bad.Fprintf(out, "  ✗ %s\n", e.Error())
				}
				return fmt.Errorf("script failed with %d error(s)", len(evalErrs))
			}

			for _, line := range res.Output {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "%s %s\n", good.Sprint("=>"), res.Value)

			if savePath != "" {
				data, err := graph.Encode(s.store.Workflow())
				if err != nil {
					return err
				}
				if err := os.WriteFile(savePath, data, 0o644); err != nil {
					return fmt.Errorf("saving workflow: %w", err)
				}
				subtle.Fprintf(out, "  saved %s\n", savePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "eval", "e", "", "Script source to run instead of a file")
	cmd.Flags().StringVarP(&savePath, "save", "o", "", "Write the resulting workflow to this file")
	return cmd
}
