package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
)

func newPingMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestEnsure_RetriesThenSucceeds(t *testing.T) {
	db, mock := newPingMock(t)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectPing()

	var migrated int32
	c := NewConnector(db, func(context.Context, *sql.DB) error {
		atomic.AddInt32(&migrated, 1)
		return nil
	}, 5, time.Millisecond, logging.Discard())

	require.NoError(t, c.Ensure(context.Background()))
	assert.True(t, c.Ready())
	assert.Equal(t, int32(1), atomic.LoadInt32(&migrated))

	// Already connected: no further pings.
	require.NoError(t, c.Ensure(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_GivesUpAfterRetries(t *testing.T) {
	db, mock := newPingMock(t)
	for i := 0; i < 3; i++ {
		mock.ExpectPing().WillReturnError(errors.New("refused"))
	}

	c := NewConnector(db, nil, 2, time.Millisecond, logging.Discard())

	err := c.Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
	assert.False(t, c.Ready())
	require.NoError(t, mock.ExpectationsWereMet())

	// A later request starts a fresh attempt.
	mock.ExpectPing()
	require.NoError(t, c.Ensure(context.Background()))
	assert.True(t, c.Ready())
}

func TestEnsure_ConcurrentCallersShareOneAttempt(t *testing.T) {
	db, mock := newPingMock(t)
	mock.ExpectPing().WillDelayFor(20 * time.Millisecond)

	var migrated int32
	c := NewConnector(db, func(context.Context, *sql.DB) error {
		atomic.AddInt32(&migrated, 1)
		return nil
	}, 5, time.Millisecond, logging.Discard())

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Ensure(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&migrated))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_MigrationFailure(t *testing.T) {
	db, mock := newPingMock(t)
	mock.ExpectPing()

	c := NewConnector(db, func(context.Context, *sql.DB) error {
		return errors.New("bad sql")
	}, 0, time.Millisecond, logging.Discard())

	err := c.Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run migrations")
	assert.False(t, c.Ready())
}

func TestEnsure_CallerContextCancelled(t *testing.T) {
	db, mock := newPingMock(t)
	mock.ExpectPing().WillDelayFor(200 * time.Millisecond)

	c := NewConnector(db, nil, 0, time.Millisecond, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Ensure(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
