package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBaseline keeps every written snapshot of a collection as a row in
// collection_snapshots. Reads return the newest one.
type PostgresBaseline struct {
	pool *pgxpool.Pool
}

// NewPostgresBaseline creates a baseline backed by pool.
func NewPostgresBaseline(pool *pgxpool.Pool) *PostgresBaseline {
	return &PostgresBaseline{pool: pool}
}

// ReadCollection returns the latest snapshot body, or ErrNotFound.
func (b *PostgresBaseline) ReadCollection(ctx context.Context, name string) ([]byte, error) {
	const q = `SELECT body FROM collection_snapshots WHERE collection = $1 ORDER BY id DESC LIMIT 1`
	var body []byte
	if err := b.pool.QueryRow(ctx, q, name).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return body, nil
}

// WriteCollection appends a new snapshot.
func (b *PostgresBaseline) WriteCollection(ctx context.Context, name string, data []byte) error {
	const q = `INSERT INTO collection_snapshots (collection, body) VALUES ($1, $2)`
	if _, err := b.pool.Exec(ctx, q, name, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return nil
}
