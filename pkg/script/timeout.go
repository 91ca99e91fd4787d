package script

import (
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation. Builtins that wait
// on the canvas use it as their deadline too.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	result Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for ch up to EvalTimeout. A result from an
// evaluation that a newer one superseded is discarded. After a timeout the
// goroutine may still be running; the generation check drops its result.
func waitWithTimeout(ch <-chan evalResult, gen uint64, mu *sync.Mutex, currentGen *uint64) (Result, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()
		if gen != current {
			return Result{}, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.result, res.errors, res.err
	case <-timer.C:
		return Result{}, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
