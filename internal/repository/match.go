package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// GetMatch loads the persisted result for a canonical pair and policy.
// Returns (nil, nil) when no record exists yet.
func (r *Repository) GetMatch(ctx context.Context, userA, userB int64, policy string) (*domain.CompatibilityResult, error) {
	lo, hi := domain.CanonicalPair(userA, userB)

	result := &domain.CompatibilityResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_a, user_b, policy, score, shared_item_ids, shared_count,
		        rating_similarity, set_similarity, genre_fallback, computed_at
		 FROM matches
		 WHERE user_a = $1 AND user_b = $2 AND policy = $3`,
		lo, hi, policy,
	).Scan(
		&result.UserA, &result.UserB, &result.Policy, &result.Score,
		&result.SharedItemIDs, &result.SharedCount,
		&result.Breakdown.RatingSimilarity, &result.Breakdown.SetSimilarity,
		&result.Breakdown.GenreFallback, &result.ComputedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("query match %d:%d", lo, hi),
			Err: err,
		}
	}
	return result, nil
}

// UpsertMatch stores a result atomically on the canonical pair key, so
// concurrent writers racing on the same pair never create a duplicate
// row; last writer wins.
func (r *Repository) UpsertMatch(ctx context.Context, result *domain.CompatibilityResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO matches (user_a, user_b, policy, score, shared_item_ids, shared_count,
		                      rating_similarity, set_similarity, genre_fallback, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_a, user_b, policy) DO UPDATE
		 SET score = EXCLUDED.score,
		     shared_item_ids = EXCLUDED.shared_item_ids,
		     shared_count = EXCLUDED.shared_count,
		     rating_similarity = EXCLUDED.rating_similarity,
		     set_similarity = EXCLUDED.set_similarity,
		     genre_fallback = EXCLUDED.genre_fallback,
		     computed_at = EXCLUDED.computed_at`,
		result.UserA, result.UserB, result.Policy, result.Score,
		result.SharedItemIDs, result.SharedCount,
		result.Breakdown.RatingSimilarity, result.Breakdown.SetSimilarity,
		result.Breakdown.GenreFallback, result.ComputedAt,
	)
	if err != nil {
		return &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("upsert match %d:%d", result.UserA, result.UserB),
			Err: err,
		}
	}
	return nil
}

// InvalidateMatches forces recomputation of every pair involving the
// user by aging the records out, keeping the rows themselves so
// blind-match exclusions still see them.
func (r *Repository) InvalidateMatches(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE matches SET computed_at = to_timestamp(0)
		 WHERE user_a = $1 OR user_b = $1`,
		userID,
	)
	if err != nil {
		return &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("invalidate matches for user %d", userID),
			Err: err,
		}
	}
	return nil
}

// GetMatchedPartnerIDs lists every user already matched with userID
// under a policy; blind matching excludes them from the next pool.
func (r *Repository) GetMatchedPartnerIDs(ctx context.Context, userID int64, policy string) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		 FROM matches
		 WHERE (user_a = $1 OR user_b = $1) AND policy = $2`,
		userID, policy,
	)
	if err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("query matched partners for user %d", userID),
			Err: err,
		}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan partner id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("iterate matched partners for user %d", userID),
			Err: err,
		}
	}
	return ids, nil
}
