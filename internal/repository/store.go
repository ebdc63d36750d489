package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a Querier that can also run a function inside one transaction.
type Store interface {
	Querier

	// ExecTx runs fn with a transaction-scoped Querier. The transaction
	// commits when fn returns nil and rolls back otherwise.
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	*Queries
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		Queries: New(pool),
		pool:    pool,
	}
}

func (s *PostgresStore) ExecTx(ctx context.Context, fn func(Querier) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(s.WithTx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
