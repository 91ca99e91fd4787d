package navigation

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// DefaultQueueSize bounds the request and response channels.
const DefaultQueueSize = 16

// Options configures a Service.
type Options struct {
	// Neighbors is the default k for k-nearest queries.
	Neighbors int
	// QueueSize bounds the request and response channels.
	QueueSize int
	// Logger receives lines for malformed or dropped messages. Nil drops them.
	Logger *log.Logger
}

// Service is the background worker. Requests go in through Post or PostRaw,
// responses come out of Responses in completion order, which need not match
// request order.
type Service struct {
	opts      Options
	requests  chan Request
	responses chan Response

	startOnce sync.Once
	done      chan struct{}
}

// NewService creates a worker. Call Start to run it.
func NewService(opts Options) *Service {
	if opts.Neighbors <= 0 {
		opts.Neighbors = DefaultNeighbors
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Service{
		opts:      opts,
		requests:  make(chan Request, opts.QueueSize),
		responses: make(chan Response, opts.QueueSize),
		done:      make(chan struct{}),
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}

// Start launches the worker goroutine. It stops when ctx is cancelled, after
// which Responses is closed. Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Done is closed once the worker has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Responses returns the channel responses are published on.
func (s *Service) Responses() <-chan Response {
	return s.responses
}

// Post queues req without blocking. It returns false when the queue is full
// or the worker has stopped; callers simply issue a fresh query later.
func (s *Service) Post(req Request) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.requests <- req:
		return true
	default:
		s.logf("navigation: request queue full, dropping %s", req.ID)
		return false
	}
}

// PostRaw decodes a JSON message and queues it. Malformed messages are
// logged and ignored.
func (s *Service) PostRaw(data []byte) bool {
	req, err := DecodeRequest(data)
	if err != nil {
		s.logf("navigation: ignoring message: %v", err)
		return false
	}
	return s.Post(req)
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.responses)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			resp := s.handle(req)
			select {
			case s.responses <- resp:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handle answers one request. A panic while querying becomes an error
// response rather than killing the worker.
func (s *Service) handle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logf("navigation: panic handling %s: %v", req.ID, r)
			resp = Response{
				RequestID:   req.ID,
				Type:        req.Type,
				ReferenceID: req.Payload.Reference.ID,
				Err:         fmt.Sprintf("panic during query: %v", r),
			}
		}
	}()
	return Answer(req, s.opts.Neighbors)
}

// Answer computes the response to req synchronously. It is what the worker
// runs for every request; exposed for callers that already run off the UI
// goroutine.
func Answer(req Request, defaultNeighbors int) Response {
	resp := Response{
		RequestID:   req.ID,
		Type:        req.Type,
		ReferenceID: req.Payload.Reference.ID,
	}

	switch req.Type {
	case TypeNearest, TypeNeighbors:
	default:
		resp.Type = TypeUnknown
		return resp
	}

	if err := checkPayload(req.Payload); err != nil {
		resp.Err = err.Error()
		return resp
	}

	k := req.Payload.Neighbors
	if k <= 0 {
		k = defaultNeighbors
	}

	ix := BuildIndex(req.Payload.Snapshot)
	p := req.Payload
	cands := ix.Neighbors(p.Reference.ID, p.Reference.Position, p.Direction, k)

	if req.Type == TypeNeighbors {
		resp.Candidates = cands
	}
	if len(cands) > 0 {
		best := cands[0]
		resp.Best = &best
	}
	return resp
}
