package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/navigation"
	"github.com/chazu/flowcanvas/pkg/script"
	"github.com/spf13/cobra"
)

func nearestCmd(g *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "nearest <id> <direction>",
		Short: "Find the nearest object in a direction (up, down, left, right)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := graph.ObjectID(args[0])
			d, err := navigation.ParseDirection(args[1])
			if err != nil {
				return err
			}

			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if all {
				return printNeighbors(cmd, s, id, d)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), script.EvalTimeout)
			defer cancel()
			cand, ok, err := s.canvas.Nearest(ctx, id, d)
			if err != nil {
				return fmt.Errorf("nearest %s: %w", id, err)
			}
			if !ok {
				warn.Fprintf(out, "  nothing %s of %s\n", d, id)
				return nil
			}
			fmt.Fprintf(out, "%s  %s  %s\n", brand.Sprint(cand.ID), cand.Kind, subtle.Sprintf("%.1f", cand.Distance))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every neighbour in the direction, nearest first")
	return cmd
}

// printNeighbors answers the query synchronously with the navigation
// service's own handler and prints every candidate.
func printNeighbors(cmd *cobra.Command, s *session, id graph.ObjectID, d navigation.Direction) error {
	p, ok := s.store.ObjectPosition(id)
	if !ok {
		return fmt.Errorf("nearest %s: %w", id, graph.ErrNotFound)
	}
	snap := s.store.Snapshot()
	resp := navigation.Answer(navigation.Request{
		Type: navigation.TypeNeighbors,
		Payload: navigation.Payload{
			Snapshot:  snap,
			Reference: navigation.Reference{ID: id, Position: p},
			Direction: d,
			Neighbors: snap.Len(),
		},
	}, snap.Len())
	if resp.Err != "" {
		return fmt.Errorf("nearest %s: %s", id, resp.Err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Candidates) == 0 {
		warn.Fprintf(out, "  nothing %s of %s\n", d, id)
		return nil
	}
	rows := make([][]string, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		rows = append(rows, []string{string(c.ID), c.Kind.String(), strconv.FormatFloat(c.Distance, 'f', 1, 64)})
	}
	table(out, []string{"ID", "KIND", "DISTANCE"}, rows)
	return nil
}
