package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the ledger.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewStore connects, runs migrations and returns a ready Store. timeout bounds
// every unit of work.
func NewStore(ctx context.Context, databaseURL string, timeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if timeout <= 0 {
		timeout = storage.DefaultTimeout
	}
	s := &Store{pool: pool, timeout: timeout}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Read runs fn against the pool; each statement commits on its own.
func (s *Store) Read(ctx context.Context, fn func(storage.Repository) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := fn(&repo{q: unitQuerier{q: s.pool, unit: ctx}})
	return finish(ctx, err)
}

// WithinTx runs fn inside a single database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Repository) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&repo{q: unitQuerier{q: tx, unit: ctx}})
	})
	return finish(ctx, err)
}

// finish reports a unit that outlived its deadline as unavailable, even when
// fn itself returned nil.
func finish(unit context.Context, err error) error {
	if err == nil && unit.Err() != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, unit.Err())
	}
	return translate(err)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			routing_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			password_hash TEXT NOT NULL,
			transfer_pin_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_unique_idx ON users (lower(username));`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique_idx ON users (lower(email));`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_routing_number_unique_idx ON users (routing_number);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			account_number TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			account_type TEXT NOT NULL CHECK (account_type IN ('checking', 'savings')),
			balance NUMERIC(20,2) NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT accounts_number_unique PRIMARY KEY (account_number),
			CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0),
			UNIQUE (user_id, account_type)
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			card_type TEXT NOT NULL,
			card_number TEXT NOT NULL,
			last_four TEXT NOT NULL,
			holder_name TEXT NOT NULL,
			expires TEXT NOT NULL,
			cvv_hash TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			design TEXT NOT NULL DEFAULT 'standard',
			linked_account TEXT NOT NULL DEFAULT '',
			issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS cards_card_number_unique_idx ON cards (card_number);`,
		`CREATE INDEX IF NOT EXISTS cards_user_idx ON cards (user_id, issued_at);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			counterparty_user_id TEXT,
			tx_type TEXT NOT NULL,
			amount NUMERIC(20,2) NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			from_account TEXT NOT NULL DEFAULT '',
			to_account TEXT NOT NULL DEFAULT '',
			account_type TEXT NOT NULL DEFAULT '',
			external_recipient_name TEXT NOT NULL DEFAULT '',
			external_bank_name TEXT NOT NULL DEFAULT '',
			external_routing_number TEXT NOT NULL DEFAULT '',
			external_swift_code TEXT NOT NULL DEFAULT '',
			external_iban TEXT NOT NULL DEFAULT '',
			balance_after NUMERIC(20,2) NOT NULL DEFAULT 0,
			admin_notes JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_user_created_idx ON transactions (user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS transactions_status_created_idx ON transactions (status, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS transactions_counterparty_idx ON transactions (counterparty_user_id) WHERE counterparty_user_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			recipient_id TEXT,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			ticket_status TEXT NOT NULL DEFAULT 'open',
			read_by_recipient BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS messages_recipient_idx ON messages (recipient_id, created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// uniqueFields maps unique index and constraint names to the field they guard.
var uniqueFields = map[string]string{
	"users_username_unique_idx":       storage.FieldUsername,
	"users_email_unique_idx":          storage.FieldEmail,
	"users_routing_number_unique_idx": storage.FieldRoutingNumber,
	"accounts_number_unique":          storage.FieldAccountNumber,
	"cards_card_number_unique_idx":    storage.FieldCardNumber,
}

// translate maps driver errors onto storage sentinels. Errors that did not
// come from the driver pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
				return &storage.ConflictError{Field: field}
			}
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pgErr.ConstraintName)
		case "23514":
			if strings.Contains(pgErr.ConstraintName, "balance") {
				return storage.ErrInsufficientFunds
			}
		case "22003":
			// numeric_value_out_of_range
			return fmt.Errorf("%w: %v", storage.ErrOutOfRange, err)
		case "57014", "40P01", "55P03":
			// query_canceled, deadlock_detected, lock_not_available
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return err
	}
	var connectErr *pgconn.ConnectError
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

func asPgErr(err error, target **pgconn.PgError) bool {
	return err != nil && errors.As(err, target)
}
