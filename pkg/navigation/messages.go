package navigation

import (
	"errors"
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// Message types understood by the worker.
const (
	// TypeNearest asks for the single best match.
	TypeNearest = "nearest"
	// TypeNeighbors asks for every match, sorted by ascending distance.
	TypeNeighbors = "neighbors"
	// TypeUnknown is the sentinel response type for unrecognised requests.
	TypeUnknown = "unknown"
)

// ErrMalformedMessage is returned when a raw message cannot be decoded into
// a request.
var ErrMalformedMessage = errors.New("malformed navigation message")

// Reference is the point a query starts from and the id it excludes.
type Reference struct {
	ID       graph.ObjectID `json:"id"`
	Position geometry.Point `json:"position"`
}

// Payload carries the query inputs.
type Payload struct {
	Snapshot  graph.Snapshot `json:"graphSnapshot"`
	Reference Reference      `json:"referencePoint"`
	Direction Direction      `json:"direction"`
	// Neighbors overrides the k of the k-nearest query when positive.
	Neighbors int `json:"neighbors,omitempty"`
}

// Request is a message sent to the worker.
type Request struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Response is a message published by the worker. Best is set for nearest
// queries; Candidates for neighbors queries.
type Response struct {
	RequestID   string         `json:"requestId"`
	Type        string         `json:"type"`
	ReferenceID graph.ObjectID `json:"referenceId"`
	Best        *Candidate     `json:"best,omitempty"`
	Candidates  []Candidate    `json:"candidates,omitempty"`
	Err         string         `json:"error,omitempty"`
}

// Found reports whether the response carries a best match.
func (r Response) Found() bool {
	return r.Best != nil
}

// DecodeRequest parses a raw JSON message. Shape problems are reported as
// ErrMalformedMessage; an unknown type is not a shape problem and is left for
// the worker to answer with the sentinel response.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := sonic.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	if req.Type == TypeNearest || req.Type == TypeNeighbors {
		if err := checkPayload(req.Payload); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

func checkPayload(p Payload) error {
	if !p.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrMalformedMessage, p.Direction)
	}
	if !finite(p.Reference.Position) {
		return fmt.Errorf("%w: non-finite reference point", ErrMalformedMessage)
	}
	return nil
}

// EncodeResponse renders a response as JSON for bridges that forward it
// verbatim.
func EncodeResponse(r Response) ([]byte, error) {
	return sonic.Marshal(r)
}

func finite(p geometry.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
