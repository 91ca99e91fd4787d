package main

import (
	"embed"
	"log"
	"os"

	"github.com/chazu/flowcanvas/pkg/canvas"
	"github.com/chazu/flowcanvas/pkg/config"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// loadStore reads the configuration and the workflow fixture named by
// FLOWCANVAS_CONFIG and FLOWCANVAS_WORKFLOW. Either may be unset.
func loadStore() (*config.Config, *graph.MemoryStore, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, nil, err
	}
	if path := os.Getenv("FLOWCANVAS_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		// Environment overrides win over the file.
		if err := loaded.ApplyEnv(); err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	wf := graph.New()
	if path := os.Getenv("FLOWCANVAS_WORKFLOW"); path != "" {
		var err error
		if wf, err = graph.ReadFile(path); err != nil {
			return nil, nil, err
		}
	}
	return cfg, graph.NewMemoryStore(wf), nil
}

func main() {
	cfg, store, err := loadStore()
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	app := NewApp(store, canvas.OptionsFromConfig(cfg, log.Default()))

	err = wails.Run(&options.App{
		Title:  "Flowcanvas",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatalf("Wails error: %v", err)
	}
}
