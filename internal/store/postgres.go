package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	_ "github.com/lib/pq"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS seen_posts (
		namespace TEXT NOT NULL,
		uri TEXT NOT NULL,
		seen_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (namespace, uri)
	)`

// PostgresStore implements domain.SeenStore using PostgreSQL.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

var _ domain.SeenStore = (*PostgresStore)(nil)

// OpenPostgres connects to PostgreSQL at the given URL, verifies the
// connection and creates the seen_posts table if needed. The caller should
// call Close when the store is no longer needed.
func OpenPostgres(ctx context.Context, databaseURL, namespace string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create seen_posts table: %w", err)
	}

	return &PostgresStore{db: db, namespace: namespace}, nil
}

// Close closes the underlying database connection.
func (r *PostgresStore) Close() error {
	return r.db.Close()
}

// Load returns every URI recorded for the namespace.
func (r *PostgresStore) Load(ctx context.Context) (domain.SeenSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT uri FROM seen_posts WHERE namespace = $1`, r.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("query seen posts (namespace=%s): %w", r.namespace, err)
	}
	defer rows.Close()

	seen := domain.NewSeenSet()
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("scan seen post: %w", err)
		}
		seen.Add(uri)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen posts: %w", err)
	}
	return seen, nil
}

// Add records a URI. Recording the same URI twice is a no-op.
func (r *PostgresStore) Add(ctx context.Context, uri string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seen_posts (namespace, uri, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, uri) DO NOTHING`,
		r.namespace, uri, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert seen post: %w", err)
	}
	return nil
}
