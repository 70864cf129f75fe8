package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed store for users, library rows, media,
// and persisted match records.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
