package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// EnsureUser verifies the user exists before any scoring happens.
func (r *Repository) EnsureUser(ctx context.Context, userID int64) error {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE id = $1`, userID,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return &domain.TransientUpstreamError{
			Op:  fmt.Sprintf("query user id=%d", userID),
			Err: err,
		}
	}
	return nil
}

// GetCandidateUserIDs returns every other user, oldest account first so
// the pool order is stable.
func (r *Repository) GetCandidateUserIDs(ctx context.Context, excludeUserID int64, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM users WHERE id <> $1 ORDER BY id LIMIT $2`,
		excludeUserID, limit,
	)
	if err != nil {
		return nil, &domain.TransientUpstreamError{Op: "query candidate users", Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.TransientUpstreamError{Op: "iterate candidate users", Err: err}
	}
	return ids, nil
}
