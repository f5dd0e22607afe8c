package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingQuerier keeps the context each statement was issued with.
type recordingQuerier struct {
	seen []context.Context
}

func (r *recordingQuerier) Exec(ctx context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	r.seen = append(r.seen, ctx)
	return pgconn.CommandTag{}, nil
}

func (r *recordingQuerier) Query(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
	r.seen = append(r.seen, ctx)
	return nil, nil
}

func (r *recordingQuerier) QueryRow(ctx context.Context, _ string, _ ...any) pgx.Row {
	r.seen = append(r.seen, ctx)
	return nil
}

func TestReadOverrunIsUnavailable(t *testing.T) {
	s := &Store{timeout: 10 * time.Millisecond}
	start := time.Now()
	err := s.Read(context.Background(), func(storage.Repository) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, apperr.StorageUnavailable, apperr.KindOf(apperr.FromStorage(err, "user")))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadWithinDeadlineSucceeds(t *testing.T) {
	s := &Store{timeout: time.Second}
	assert.NoError(t, s.Read(context.Background(), func(storage.Repository) error { return nil }))
}

func TestStatementsRunUnderUnitDeadline(t *testing.T) {
	rec := &recordingQuerier{}
	unit, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	q := unitQuerier{q: rec, unit: unit}

	// the caller passes its own, deadline-free context
	caller := context.Background()
	_, _ = q.Exec(caller, "UPDATE accounts SET balance = balance")
	_, _ = q.Query(caller, "SELECT 1")
	_ = q.QueryRow(caller, "SELECT 1 FOR UPDATE")

	require.Len(t, rec.seen, 3)
	for _, ctx := range rec.seen {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		want, _ := unit.Deadline()
		assert.Equal(t, want, deadline)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, _ = q.Exec(cancelled, "SELECT 1")
	assert.ErrorIs(t, rec.seen[3].Err(), context.Canceled)
}
