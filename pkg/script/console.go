// Package script is a scripting console for a canvas. Scripts are zygomys
// Lisp run in a fresh sandbox per evaluation, with builtins that drive the
// selection, drags and navigation of one canvas.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/flowcanvas/pkg/canvas"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a parse or runtime error in a script.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the outcome of a successful evaluation.
type Result struct {
	// Value is the printed value of the last expression.
	Value string
	// Output collects lines written with (emit ...).
	Output []string
}

// Console evaluates scripts against one canvas. Evaluations may overlap;
// only the most recent one reports its result.
type Console struct {
	canvas *canvas.Canvas

	mu         sync.Mutex
	generation uint64
}

// New returns a console bound to c.
func New(c *canvas.Canvas) *Console {
	return &Console{canvas: c}
}

// Evaluate runs source.
//
//   - On success: result, nil, nil
//   - On a script error: zero result, the errors, nil
//   - On timeout, panic or supersession: zero result, nil, error
func (c *Console) Evaluate(source string) (Result, []EvalError, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, errs := c.evaluate(source)
		ch <- evalResult{result: res, errors: errs}
	}()

	return waitWithTimeout(ch, gen, &c.mu, &c.generation)
}

func (c *Console) evaluate(source string) (Result, []EvalError) {
	if strings.TrimSpace(source) == "" {
		return Result{Value: "nil"}, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	var out []string
	registerBuiltins(env, c.canvas, &out)

	if err := env.LoadString(rewriteSource(source)); err != nil {
		return Result{}, parseZygomysError(err)
	}
	v, err := env.Run()
	if err != nil {
		return Result{}, parseZygomysError(err)
	}
	return Result{Value: v.SexpString(nil), Output: out}, nil
}

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError extracts a line number from a zygomys error message
// when there is one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
