// Package graph defines the workflow graph model seen by the canvas: nodes,
// connections, annotations and container port-bars, the Store contract of the
// persisted-graph collaborator, and an in-memory Store used by the desktop
// bridge, the CLI and tests.
package graph
