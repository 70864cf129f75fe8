package domain

import (
	"fmt"
	"time"
)

// CompatibilityResult is the persisted outcome of scoring one unordered
// user pair. UserA is always the smaller ID so exactly one row exists per
// pair regardless of argument order.
type CompatibilityResult struct {
	UserA         int64     `json:"user_a"`
	UserB         int64     `json:"user_b"`
	Score         int       `json:"score"` // 0..100
	SharedItemIDs []string  `json:"shared_item_ids"`
	SharedCount   int       `json:"shared_count"`
	Policy        string    `json:"policy"`
	Breakdown     Breakdown `json:"breakdown"`
	ComputedAt    time.Time `json:"computed_at"`
}

// Breakdown exposes the two similarity terms behind a score. When
// GenreFallback is set the pair had no item overlap and the score is
// genre similarity alone.
type Breakdown struct {
	RatingSimilarity float64 `json:"rating_similarity"`
	SetSimilarity    float64 `json:"set_similarity"`
	GenreFallback    bool    `json:"genre_fallback"`
}

// CanonicalPair orders two user IDs so (a,b) and (b,a) name the same pair.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// PairKey builds the canonical cache/storage key for an unordered pair.
func PairKey(a, b int64) string {
	lo, hi := CanonicalPair(a, b)
	return fmt.Sprintf("%d:%d", lo, hi)
}
