package navigation

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/google/uuid"
)

// ErrSuperseded is returned by Await when a newer query replaced the one
// being waited on.
var ErrSuperseded = errors.New("navigation query superseded by newer request")

// ErrStopped is returned when the worker is no longer running.
var ErrStopped = errors.New("navigation service stopped")

// Navigator is the caller side of the Service. It tags every query with a
// fresh request id and only delivers the response to the most recent query;
// responses to earlier queries are dropped whenever they arrive.
type Navigator struct {
	svc    *Service
	logger *log.Logger

	mu       sync.Mutex
	latest   string
	latestRf graph.ObjectID
	waiters  map[string]chan Response
	onResult func(Response)
	// stopped is set once dispatch has drained; no waiter is registered after.
	stopped bool

	runOnce sync.Once
}

// NewNavigator wraps svc. onResult, if not nil, receives every current
// response on the navigator's dispatch goroutine.
func NewNavigator(svc *Service, onResult func(Response)) *Navigator {
	return &Navigator{
		svc:      svc,
		logger:   svc.opts.Logger,
		waiters:  make(map[string]chan Response),
		onResult: onResult,
	}
}

// Start launches the worker and the dispatch goroutine.
func (n *Navigator) Start(ctx context.Context) {
	n.runOnce.Do(func() {
		n.svc.Start(ctx)
		go n.dispatch()
	})
}

func (n *Navigator) dispatch() {
	for resp := range n.svc.Responses() {
		n.deliver(resp)
	}

	// Worker gone: release anyone still waiting.
	n.mu.Lock()
	n.stopped = true
	for id, ch := range n.waiters {
		close(ch)
		delete(n.waiters, id)
	}
	n.mu.Unlock()
}

func (n *Navigator) deliver(resp Response) {
	n.mu.Lock()
	current := resp.RequestID == n.latest && resp.ReferenceID == n.latestRf
	waiter, waiting := n.waiters[resp.RequestID]
	if waiting {
		delete(n.waiters, resp.RequestID)
	}
	handler := n.onResult
	n.mu.Unlock()

	if !current {
		if n.logger != nil {
			n.logger.Printf("navigation: dropping stale response %s", resp.RequestID)
		}
		if waiting {
			close(waiter)
		}
		return
	}

	if waiting {
		waiter <- resp
		close(waiter)
	}
	if handler != nil {
		handler(resp)
	}
}

// Query issues a nearest query from ref in direction d and returns its
// request id. Any earlier query becomes stale.
func (n *Navigator) Query(s graph.Snapshot, ref Reference, d Direction) (string, bool) {
	id, _, ok := n.post(s, ref, d, false)
	return id, ok
}

func (n *Navigator) post(s graph.Snapshot, ref Reference, d Direction, wait bool) (string, chan Response, bool) {
	req := Request{
		ID:   uuid.NewString(),
		Type: TypeNearest,
		Payload: Payload{
			Snapshot:  s,
			Reference: ref,
			Direction: d,
		},
	}

	var ch chan Response
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return req.ID, nil, false
	}
	n.latest = req.ID
	n.latestRf = ref.ID
	if wait {
		ch = make(chan Response, 1)
		n.waiters[req.ID] = ch
	}
	n.mu.Unlock()

	if !n.svc.Post(req) {
		n.mu.Lock()
		delete(n.waiters, req.ID)
		n.mu.Unlock()
		return req.ID, nil, false
	}
	return req.ID, ch, true
}

func (n *Navigator) isStopped() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

// IsCurrent reports whether requestID is the most recent query.
func (n *Navigator) IsCurrent(requestID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest == requestID
}

// Await issues a query and blocks until its response arrives, ctx ends, or a
// newer query supersedes it.
func (n *Navigator) Await(ctx context.Context, s graph.Snapshot, ref Reference, d Direction) (Candidate, bool, error) {
	id, ch, ok := n.post(s, ref, d, true)
	if !ok {
		if n.isStopped() {
			return Candidate{}, false, ErrStopped
		}
		select {
		case <-n.svc.Done():
			return Candidate{}, false, ErrStopped
		default:
			return Candidate{}, false, errors.New("navigation request queue full")
		}
	}

	select {
	case resp, open := <-ch:
		if !open {
			if n.IsCurrent(id) {
				return Candidate{}, false, ErrStopped
			}
			return Candidate{}, false, ErrSuperseded
		}
		if resp.Err != "" {
			return Candidate{}, false, errors.New(resp.Err)
		}
		if resp.Best == nil {
			return Candidate{}, false, nil
		}
		return *resp.Best, true, nil
	case <-ctx.Done():
		n.mu.Lock()
		delete(n.waiters, id)
		n.mu.Unlock()
		return Candidate{}, false, ctx.Err()
	}
}
