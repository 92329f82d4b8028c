// Package database implements catalog.TxStore on PostgreSQL via pgx.
package database

import (
	"context"
	"fmt"

	"github.com/cabinetworks/catalog/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
}

// queries carries the SQL operations; it runs against either the pool or a
// transaction and implements catalog.Store.
type queries struct {
	db DBTX
}

// Store is the pool-backed catalog store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ catalog.TxStore = (*Store)(nil)

// NewStore creates a Store over the connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// WithTx runs fn inside one transaction. Any error from fn (or commit) rolls
// the transaction back in full.
func (s *Store) WithTx(ctx context.Context, fn func(catalog.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
