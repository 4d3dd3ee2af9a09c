package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"huellas/internal/middleware"
)

const (
	// RegionBoundsTTL keeps geocoded region boxes for a day.
	RegionBoundsTTL = 24 * time.Hour
	// DefaultListingTTL bounds how stale a cached listing page may be.
	DefaultListingTTL = 30 * time.Second
)

// ListingVersionKey holds the generation counter for a kind's listings.
func ListingVersionKey(kind string) string {
	return "listing:v:" + kind
}

// ListingKey addresses one cached listing page for a query fingerprint.
func ListingKey(kind string, version int64, fingerprint string) string {
	sum := sha1.Sum([]byte(fingerprint))
	return fmt.Sprintf("listing:%s:v%d:%s", kind, version, hex.EncodeToString(sum[:8]))
}

// RegionBoundsKey addresses a cached bounding box.
func RegionBoundsKey(country, province string) string {
	return fmt.Sprintf("geo:bbox:%s:%s", country, province)
}

// Store is a JSON cache on Redis. A Store with a nil client misses on every
// read and drops every write.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// GetJSON reads key into dest. It returns false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside returns the cached value for key or calls fetch, which must fill
// dest, and stores the result. Cache failures degrade to calling fetch.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (hit bool, err error) {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return true, nil
	}
	if err := fetch(); err != nil {
		return false, err
	}
	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return false, nil
}

// Invalidate deletes keys, logging failures.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// Version returns the current generation of a versioned key space.
func (s *Store) Version(ctx context.Context, versionKey string) int64 {
	if !s.Enabled() {
		return 0
	}
	v, err := s.rdb.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache version read failed", slog.String("key", versionKey), slog.String("error", err.Error()))
	}
	return v
}

// BumpVersion moves a key space to a new generation, orphaning old entries
// until their TTL expires.
func (s *Store) BumpVersion(ctx context.Context, versionKey string) {
	if !s.Enabled() {
		return
	}
	if err := s.rdb.Incr(ctx, versionKey).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache version bump failed", slog.String("key", versionKey), slog.String("error", err.Error()))
	}
}
