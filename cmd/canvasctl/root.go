package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chazu/flowcanvas/pkg/canvas"
	"github.com/chazu/flowcanvas/pkg/config"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath   string
	workflowPath string
	debug        bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Drive a workflow canvas from the command line",
		Long:          brand.Sprint("canvasctl") + " loads a workflow fixture into a canvas and drives it headlessly",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("canvasctl {{ .Version }}\n")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (.toml, .yaml)")
	root.PersistentFlags().StringVarP(&opts.workflowPath, "workflow", "w", "", "Workflow fixture (JSON)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log canvas internals to stderr")

	root.AddCommand(
		runCmd(opts),
		nearestCmd(opts),
		inspectCmd(opts),
		configCmd(opts),
	)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w (see %s --help)", err, cmd.CommandPath())
	})
	return root
}

// loadConfig returns the defaults, overlaid by --config and then by the
// environment and any .env file in the working directory.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// session is a canvas over the loaded fixture, running until closed.
type session struct {
	store  *graph.MemoryStore
	canvas *canvas.Canvas
	cancel context.CancelFunc
}

func (s *session) Close() {
	s.cancel()
	s.canvas.Close()
}

// open loads the configuration and workflow and starts a canvas on them.
func (o *globalOptions) open() (*session, error) {
	if o.workflowPath == "" {
		return nil, fmt.Errorf("no workflow given, use --workflow")
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	wf, err := graph.ReadFile(o.workflowPath)
	if err != nil {
		return nil, err
	}

	store := graph.NewMemoryStore(wf)
	copts := canvas.OptionsFromConfig(cfg, log.New(os.Stderr, "canvasctl: ", log.LstdFlags))
	// Scripts apply frames themselves.
	copts.FrameInterval = 0

	ctx, cancel := context.WithCancel(context.Background())
	c := canvas.New(store, copts)
	c.Start(ctx)
	return &session{store: store, canvas: c, cancel: cancel}, nil
}
