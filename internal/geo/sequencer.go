package geo

import (
	"context"
	"sync"

	"huellas/internal/models"
)

// Sequencer keeps at most one lookup in flight per client. Starting a new
// lookup cancels the previous one, whose caller gets StaleRequest.
type Sequencer struct {
	mu       sync.Mutex
	next     uint64
	inflight map[string]inflight
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{inflight: make(map[string]inflight)}
}

func (s *Sequencer) begin(ctx context.Context, client string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.inflight[client]; ok {
		prev.cancel()
	}
	s.next++
	s.inflight[client] = inflight{seq: s.next, cancel: cancel}
	return ctx, s.next
}

// end reports whether seq is still the latest lookup for client.
func (s *Sequencer) end(client string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.inflight[client]
	if !ok || cur.seq != seq {
		return false
	}
	cur.cancel()
	delete(s.inflight, client)
	return true
}

// Sequence runs fn as the newest lookup for client.
func Sequence[T any](ctx context.Context, s *Sequencer, client string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if s == nil || client == "" {
		return fn(ctx)
	}

	runCtx, seq := s.begin(ctx, client)
	v, err := fn(runCtx)
	if !s.end(client, seq) {
		return zero, models.NewStaleRequestError()
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}
