package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"huellas/internal/models"
)

const (
	// PositionTimeout bounds a single position request.
	PositionTimeout = 10 * time.Second
	// PositionMaxAge is how long a fix may be reused for the same client.
	PositionMaxAge = 5 * time.Minute
)

// PositionOptions are passed to a PositionSource on every request.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// Position is a located fix.
type Position struct {
	LatLng
	// Accuracy is the radius in meters, 0 when unknown.
	Accuracy float64   `json:"accuracy,omitempty"`
	At       time.Time `json:"at"`
}

// PositionSource produces the caller's position. It may return a
// PermissionDenied or Unavailable AppError.
type PositionSource interface {
	Position(ctx context.Context, opts PositionOptions) (Position, error)
}

// PositionFunc adapts a function to PositionSource.
type PositionFunc func(ctx context.Context, opts PositionOptions) (Position, error)

func (f PositionFunc) Position(ctx context.Context, opts PositionOptions) (Position, error) {
	return f(ctx, opts)
}

// Locator caches recent fixes per client and enforces the request timeout.
type Locator struct {
	mu    sync.Mutex
	fixes map[string]Position
	now   func() time.Time
}

// NewLocator returns an empty Locator.
func NewLocator() *Locator {
	return &Locator{fixes: make(map[string]Position), now: time.Now}
}

// CurrentPosition returns a cached fix for client younger than PositionMaxAge,
// or asks src. A source that does not answer within PositionTimeout yields
// Unavailable. An empty client key disables the cache.
func (l *Locator) CurrentPosition(ctx context.Context, client string, src PositionSource) (Position, error) {
	if client != "" {
		if p, ok := l.cached(client); ok {
			return p, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, PositionTimeout)
	defer cancel()

	p, err := src.Position(ctx, PositionOptions{HighAccuracy: true, Timeout: PositionTimeout, MaxAge: PositionMaxAge})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, models.NewUnavailableError("Position request timed out", err)
		}
		return Position{}, err
	}
	if p.At.IsZero() {
		p.At = l.now()
	}

	if client != "" {
		l.mu.Lock()
		l.fixes[client] = p
		l.mu.Unlock()
	}
	return p, nil
}

func (l *Locator) cached(client string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.fixes[client]
	if !ok {
		return Position{}, false
	}
	if l.now().Sub(p.At) > PositionMaxAge {
		delete(l.fixes, client)
		return Position{}, false
	}
	return p, true
}

// Forget drops the cached fix for client, e.g. after the profile region changes.
func (l *Locator) Forget(client string) {
	l.mu.Lock()
	delete(l.fixes, client)
	l.mu.Unlock()
}
