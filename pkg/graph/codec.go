package graph

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// document is the JSON fixture layout used by the CLI and the desktop bridge
// to seed a MemoryStore. It is not a persistence format.
type document struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	PortBars    []PortBar    `json:"portBars,omitempty"`
}

// Decode parses a workflow fixture and validates it. Findings with error
// severity reject the document.
func Decode(data []byte) (*Workflow, error) {
	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}

	w := New()
	for i := range doc.Nodes {
		w.AddNode(&doc.Nodes[i])
	}
	for i := range doc.Annotations {
		w.AddAnnotation(&doc.Annotations[i])
	}
	for i := range doc.PortBars {
		w.SetPortBar(&doc.PortBars[i])
	}
	for i := range doc.Connections {
		w.AddConnection(&doc.Connections[i])
	}

	for _, finding := range Validate(w) {
		if finding.Severity == SeverityError {
			return nil, fmt.Errorf("decode workflow: %w", finding)
		}
	}
	return w, nil
}

// ReadFile decodes the workflow fixture at path.
func ReadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return Decode(data)
}

// Encode renders w in the fixture layout, objects in insertion order.
func Encode(w *Workflow) ([]byte, error) {
	var doc document
	for _, id := range w.order {
		if n, ok := w.Nodes[id]; ok {
			doc.Nodes = append(doc.Nodes, *n)
			continue
		}
		if a, ok := w.Annotations[id]; ok {
			doc.Annotations = append(doc.Annotations, *a)
			continue
		}
		if c, ok := w.Connections[id]; ok {
			doc.Connections = append(doc.Connections, *c)
			continue
		}
		if side, ok := PortBarSideOf(id); ok {
			if p, exists := w.PortBars[side]; exists {
				doc.PortBars = append(doc.PortBars, *p)
			}
		}
	}
	return sonic.Marshal(doc)
}
