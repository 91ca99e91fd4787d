package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/flowcanvas/pkg/config"
	"github.com/spf13/cobra"
)

func configCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"canvas.grid_size", formatFloat(cfg.Canvas.GridSize)},
				{"canvas.settle_delay", cfg.Canvas.SettleDelay.String()},
				{"canvas.frame_interval", cfg.Canvas.FrameInterval.String()},
				{"canvas.edge_offset", formatFloat(cfg.Canvas.EdgeOffset)},
				{"navigation.neighbors", fmt.Sprint(cfg.Navigation.Neighbors)},
				{"navigation.queue_size", fmt.Sprint(cfg.Navigation.QueueSize)},
				{"log.debug", fmt.Sprint(cfg.Log.Debug)},
			}
			table(out, []string{"KEY", "VALUE"}, rows)
			return nil
		},
	}
	cmd.AddCommand(configInitCmd(g))
	return cmd
}

func configInitCmd(g *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the effective configuration to a .toml or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists, use --force to overwrite", path)
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "  ✓ wrote %s\n", filepath.Clean(path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
