package repository

import (
	"context"
	"fmt"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// GetLibrary fetches a user's full library. Order is fixed (updated_at,
// then media_id) so genre first-seen order is deterministic downstream.
func (r *Repository) GetLibrary(ctx context.Context, userID int64) ([]domain.LibraryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, media_type, media_id, rating, genres, updated_at
		 FROM library_entries
		 WHERE user_id = $1
		 ORDER BY updated_at, media_id`,
		userID,
	)
	if err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("query library for user %d", userID),
			Err: err,
		}
	}
	defer rows.Close()

	var entries []domain.LibraryEntry
	for rows.Next() {
		var e domain.LibraryEntry
		if err := rows.Scan(&e.UserID, &e.MediaType, &e.MediaID, &e.Rating, &e.Genres, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan library entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("iterate library for user %d", userID),
			Err: err,
		}
	}
	return entries, nil
}

// UpsertLibraryEntry adds or re-rates one entry. Conflicts on the
// (user, media) pair update in place rather than duplicating the row.
func (r *Repository) UpsertLibraryEntry(ctx context.Context, e domain.LibraryEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO library_entries (user_id, media_type, media_id, rating, genres, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id, media_id) DO UPDATE
		 SET rating = EXCLUDED.rating,
		     genres = EXCLUDED.genres,
		     updated_at = now()`,
		e.UserID, e.MediaType, e.MediaID, e.Rating, e.Genres,
	)
	if err != nil {
		return &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("upsert library entry %s for user %d", e.MediaID, e.UserID),
			Err: err,
		}
	}
	return nil
}
