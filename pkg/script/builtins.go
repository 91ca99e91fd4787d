package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/flowcanvas/pkg/canvas"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/move"
	"github.com/chazu/flowcanvas/pkg/navigation"
	zygo "github.com/glycerine/zygomys/zygo"
)

// scriptPointer is the pointer id scripts drive drags with.
const scriptPointer = 1

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// isKW reports whether s is a rewritten keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// splitFlags separates keyword flags (:additive, :fine) from positional
// arguments. Keywords here never take a value.
func splitFlags(args []zygo.Sexp) (positional []zygo.Sexp, flags map[string]bool) {
	flags = make(map[string]bool)
	for _, a := range args {
		if name, ok := isKW(a); ok {
			flags[name] = true
			continue
		}
		positional = append(positional, a)
	}
	return positional, flags
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toID(s zygo.Sexp) (graph.ObjectID, error) {
	if str, ok := s.(*zygo.SexpStr); ok && !strings.HasPrefix(str.S, kwPrefix) {
		return graph.ObjectID(str.S), nil
	}
	return graph.ZeroID, fmt.Errorf("expected object id string, got %T (%s)", s, s.SexpString(nil))
}

func toIDs(args []zygo.Sexp) ([]graph.ObjectID, error) {
	ids := make([]graph.ObjectID, 0, len(args))
	for i, a := range args {
		id, err := toID(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toPoint(args []zygo.Sexp) (geometry.Point, error) {
	if len(args) != 2 {
		return geometry.Point{}, fmt.Errorf("expected x and y, got %d arguments", len(args))
	}
	x, err := toFloat64(args[0])
	if err != nil {
		return geometry.Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := toFloat64(args[1])
	if err != nil {
		return geometry.Point{}, fmt.Errorf("y: %w", err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func toDirection(s zygo.Sexp) (navigation.Direction, error) {
	name, ok := isKW(s)
	if !ok {
		str, isStr := s.(*zygo.SexpStr)
		if !isStr {
			return "", fmt.Errorf("expected direction keyword, got %T", s)
		}
		name = str.S
	}
	return navigation.ParseDirection(name)
}

func idList(ids []graph.ObjectID) zygo.Sexp {
	items := make([]zygo.Sexp, len(ids))
	for i, id := range ids {
		items[i] = &zygo.SexpStr{S: string(id)}
	}
	return zygo.MakeList(items)
}

func candidate(c navigation.Candidate, ok bool) zygo.Sexp {
	if !ok {
		return zygo.SexpNull
	}
	return &zygo.SexpStr{S: string(c.ID)}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the canvas builtins into env. Names use
// snake_case; rewriteSource turns the kebab-case spelling users type into it.
// Lines passed to (emit ...) are appended to out.
func registerBuiltins(env *zygo.Zlisp, c *canvas.Canvas, out *[]string) {
	sel := c.Selection()

	// (select "a" "b") -> number of selected objects
	env.AddFunction("select", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := toIDs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select: %w", err)
		}
		sel.Select(ids...)
		return &zygo.SexpInt{Val: int64(len(selectedIDs(c)))}, nil
	})

	// (deselect "a")
	env.AddFunction("deselect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := toIDs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deselect: %w", err)
		}
		sel.Deselect(ids...)
		return &zygo.SexpInt{Val: int64(len(selectedIDs(c)))}, nil
	})

	// (clear-selection)
	env.AddFunction("clear_selection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sel.ClearAll()
		return zygo.SexpNull, nil
	})

	// (selected) -> list of ids
	env.AddFunction("selected", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return idList(selectedIDs(c)), nil
	})

	// (pointer-down x y :additive)
	env.AddFunction("pointer_down", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pos, flags := splitFlags(args)
		p, err := toPoint(pos)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pointer-down: %w", err)
		}
		if err := c.PointerDown(scriptPointer, p, move.Modifiers{Additive: flags["additive"], Fine: flags["fine"]}); err != nil {
			return zygo.SexpNull, fmt.Errorf("pointer-down: %w", err)
		}
		id, ok := c.ObjectAt(p)
		if !ok {
			return zygo.SexpNull, nil
		}
		return &zygo.SexpStr{S: string(id)}, nil
	})

	// (pointer-move x y :fine) -> applies one frame
	env.AddFunction("pointer_move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pos, flags := splitFlags(args)
		p, err := toPoint(pos)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pointer-move: %w", err)
		}
		c.PointerMove(scriptPointer, p, move.Modifiers{Fine: flags["fine"]})
		c.Moves().Frame()
		return zygo.SexpNull, nil
	})

	// (pointer-up x y) commits without waiting out the settle delay
	env.AddFunction("pointer_up", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pointer-up: %w", err)
		}
		c.PointerUp(scriptPointer, p)
		c.Moves().Flush()

		ctx, cancel := context.WithTimeout(context.Background(), EvalTimeout)
		defer cancel()
		if err := c.Moves().WaitIdle(ctx); err != nil {
			return zygo.SexpNull, fmt.Errorf("pointer-up: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (abort)
	env.AddFunction("abort", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := c.Abort(); err != nil {
			return zygo.SexpNull, fmt.Errorf("abort: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (nearest "a" :right) -> id or nil
	env.AddFunction("nearest", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("nearest requires an id and a direction")
		}
		id, err := toID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		d, err := toDirection(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), EvalTimeout)
		defer cancel()
		cand, ok, err := c.Nearest(ctx, id, d)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		return candidate(cand, ok), nil
	})

	// (navigate :down) -> id or nil; selects the result
	env.AddFunction("navigate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("navigate requires a direction")
		}
		d, err := toDirection(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("navigate: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), EvalTimeout)
		defer cancel()
		cand, ok, err := c.Navigate(ctx, d)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("navigate: %w", err)
		}
		return candidate(cand, ok), nil
	})

	// (pos-x "a"), (pos-y "a")
	coord := func(label string, pick func(geometry.Point) float64) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires an id", label)
			}
			id, err := toID(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			p, ok := c.Store().ObjectPosition(id)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: %s: %w", label, id, graph.ErrNotFound)
			}
			return &zygo.SexpFloat{Val: pick(p)}, nil
		}
	}
	env.AddFunction("pos_x", coord("pos-x", func(p geometry.Point) float64 { return p.X }))
	env.AddFunction("pos_y", coord("pos-y", func(p geometry.Point) float64 { return p.Y }))

	// (emit "text" ...)
	env.AddFunction("emit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.(*zygo.SexpStr); ok {
				parts[i] = s.S
				continue
			}
			parts[i] = a.SexpString(nil)
		}
		*out = append(*out, strings.Join(parts, " "))
		return zygo.SexpNull, nil
	})
}

// selectedIDs lists every selected object that still exists, port-bars by
// their object id.
func selectedIDs(c *canvas.Canvas) []graph.ObjectID {
	cur := c.Selection().Current()
	ids := make([]graph.ObjectID, 0, len(cur.Nodes)+len(cur.Connections)+len(cur.Annotations)+len(cur.PortBars))
	ids = append(ids, cur.Nodes...)
	ids = append(ids, cur.Annotations...)
	ids = append(ids, cur.Connections...)
	for _, side := range cur.PortBars {
		ids = append(ids, graph.PortBarID(side))
	}
	return ids
}
