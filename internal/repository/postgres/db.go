package postgresrepo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// maxTxAttempts bounds retries of serialization failures and deadlocks.
	maxTxAttempts = 5
	retryBackoff  = 10 * time.Millisecond
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn inside a transaction, read committed unless opts say
// otherwise. Every write path locks the rows it checks with FOR UPDATE, so
// the check and the write always see the latest committed version.
// Serialization failures and deadlocks rerun fn from scratch after a short
// jittered backoff.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTxOnce(ctx, txOpts, fn)
		if err == nil || !IsRetryable(err) || attempt == maxTxAttempts {
			return err
		}

		wait := retryBackoff*time.Duration(attempt) + rand.N(retryBackoff)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}

	return err
}

func (s *Store) runTxOnce(ctx context.Context, txOpts pgx.TxOptions, fn func(ctx context.Context, tx DB) error) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// atomic runs fn on db when the caller already owns a transaction and opens
// a new one otherwise.
func (s *Store) atomic(ctx context.Context, db DB, fn func(ctx context.Context, tx DB) error) error {
	if db != nil {
		return fn(ctx, db)
	}
	return s.RunTx(ctx, nil, fn)
}

func (s *Store) Catalog() *CatalogRepo     { return &CatalogRepo{store: s} }
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{store: s} }
func (s *Store) Ledger() *LedgerRepo       { return &LedgerRepo{store: s} }
func (s *Store) Bookings() *BookingRepo    { return &BookingRepo{store: s} }
func (s *Store) CheckIn() *CheckInRepo     { return &CheckInRepo{store: s} }
func (s *Store) Query() *QueryRepo         { return &QueryRepo{store: s} }
func (s *Store) Admin() *AdminRepo         { return &AdminRepo{store: s} }
