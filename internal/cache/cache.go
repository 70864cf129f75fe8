package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// Store is the TTL result cache. Implemented by the in-memory cache
// (single instance, default) and the Redis cache (shared across
// instances). A ttl of zero means "use the store's default".
//
// The cache is a pure optimization: callers treat every error as a miss
// and recompute.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern
	// (e.g. "mash:*:42:*").
	DeletePattern(ctx context.Context, pattern string) error
	Clear(ctx context.Context) error
}

// SignatureKey caches one user's taste signature.
func SignatureKey(userID int64) string {
	return fmt.Sprintf("sig:user:%d", userID)
}

// PairScoreKey caches a pairwise result. The two IDs are canonicalized
// first so argument order never produces a duplicate entry.
func PairScoreKey(policy string, a, b int64) string {
	return fmt.Sprintf("mash:%s:%s", domain.PairKey(a, b), policy)
}

// UserPatterns returns the glob patterns covering every cached value
// that depends on one user's library.
func UserPatterns(userID int64) []string {
	return []string{
		SignatureKey(userID),
		fmt.Sprintf("mash:%d:*", userID),
		fmt.Sprintf("mash:*:%d:*", userID),
	}
}
