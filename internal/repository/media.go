package repository

import (
	"context"
	"fmt"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// GetUnseenMedia returns media items absent from the user's library,
// optionally restricted to one media type. Order is fixed so the
// candidate pool is deterministic for identical data.
func (r *Repository) GetUnseenMedia(ctx context.Context, userID int64, mediaType domain.MediaType, limit int) ([]domain.Candidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.genres
		 FROM media m
		 LEFT JOIN library_entries le
		     ON le.media_id = m.id AND le.user_id = $1
		 WHERE le.media_id IS NULL
		   AND ($2 = '' OR m.media_type = $2)
		 ORDER BY m.id
		 LIMIT $3`,
		userID, string(mediaType), limit,
	)
	if err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("query unseen media for user %d", userID),
			Err: err,
		}
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Genres); err != nil {
			return nil, fmt.Errorf("scan media candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("iterate unseen media for user %d", userID),
			Err: err,
		}
	}
	return candidates, nil
}

// GetUnseenMediaForUsers returns media none of the given users own;
// group consensus pools start from here.
func (r *Repository) GetUnseenMediaForUsers(ctx context.Context, userIDs []int64, limit int) ([]domain.Candidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.genres
		 FROM media m
		 WHERE NOT EXISTS (
		     SELECT 1 FROM library_entries le
		     WHERE le.media_id = m.id AND le.user_id = ANY($1)
		 )
		 ORDER BY m.id
		 LIMIT $2`,
		userIDs, limit,
	)
	if err != nil {
		return nil, &domain.TransientUpstreamError{Op: "query group unseen media", Err: err}
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Genres); err != nil {
			return nil, fmt.Errorf("scan media candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.TransientUpstreamError{Op: "iterate group unseen media", Err: err}
	}
	return candidates, nil
}
