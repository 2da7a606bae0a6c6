package workload

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/salahkhalfi/offlineq/types"
)

// Payload is the body sent by the traffic generator.
type Payload struct {
	Seq  uint64 `json:"seq"`
	Data []byte `json:"data"`
}

// Server is an in-memory backend that records every delivered write.
type Server struct {
	mu        sync.Mutex
	delivered map[uint64]int
	order     []uint64
	reject    map[uint64]bool
}

var _ types.Transport = (*Server)(nil)

// NewServer creates an empty server.
func NewServer() *Server {
	return &Server{
		delivered: make(map[uint64]int),
		reject:    make(map[uint64]bool),
	}
}

// Reject makes the server answer 422 for the write with the given seq.
func (s *Server) Reject(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reject[seq] = true
}

// Perform decodes the sequence number from the payload and records it.
func (s *Server) Perform(_ context.Context, req types.Request) (*types.Response, error) {
	var p Payload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return nil, &types.TransportError{Status: 400, Target: req.Target, Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reject[p.Seq] {
		return nil, &types.TransportError{Status: 422, Target: req.Target}
	}
	s.delivered[p.Seq]++
	s.order = append(s.order, p.Seq)

	return &types.Response{Status: 201}, nil
}

// Deliveries returns how many times seq was delivered.
func (s *Server) Deliveries(seq uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delivered[seq]
}

// Order returns every delivery in arrival order.
func (s *Server) Order() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uint64, len(s.order))
	copy(out, s.order)

	return out
}
