// Command canvasctl drives a flowcanvas headlessly: it loads a workflow
// fixture, runs canvas scripts and answers navigation queries.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		bad.Fprintf(os.Stderr, "canvasctl: %v\n", err)
		os.Exit(1)
	}
}
