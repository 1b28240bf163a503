package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var cols = []string{"id", "email", "password_hash", "is_verified", "verified_at", "is_active", "setup_complete", "restaurant_id", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(email,\s*password_hash,\s*is_verified,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at,\s*updated_at$`
	mock.ExpectQuery(q).
		WithArgs("a@x.com", "hash", false, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", now, now))

	got, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com", PasswordHash: "hash", Active: models.AccountActive})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmailIsConflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com", PasswordHash: "h", Active: 1})

	var ce *common.ConflictError
	require.True(t, errors.As(err, &ce), "want ConflictError, got %v", err)
	assert.Equal(t, "email", ce.Field)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	verifiedAt := now.Add(-time.Hour)

	q := `(?s)^SELECT\s+id,\s*email,.*updated_at\s+FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "a@x.com", "h", true, verifiedAt, int64(1), true, "r-9", now, now))

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.True(t, got.Verified)
	require.NotNil(t, got.VerifiedAt)
	assert.Equal(t, verifiedAt, *got.VerifiedAt)
	require.NotNil(t, got.RestaurantID)
	assert.Equal(t, "r-9", *got.RestaurantID)
	assert.Equal(t, models.AccountActive, got.Active)
}

func TestGetByID_NullableColumns(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "a@x.com", "h", false, nil, int64(0), false, nil, now, now))

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.VerifiedAt)
	assert.Nil(t, got.RestaurantID)
	assert.False(t, got.IsActive())
}

func TestGetByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "a@x.com", "h", false, nil, int64(1), false, nil, now, now))

	_, err := repo.GetByIDForUpdate(context.Background(), "u-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WithArgs("ghost@x.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSwapPasswordHash(t *testing.T) {
	q := `(?s)^UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$3,.*WHERE\s+id\s*=\s*\$1\s+AND\s+password_hash\s*=\s*\$2$`

	t.Run("swapped", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("u-1", "old", "new").WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.SwapPasswordHash(context.Background(), "u-1", "old", "new")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale hash", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("u-1", "old", "new").WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.SwapPasswordHash(context.Background(), "u-1", "old", "new")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnError(errors.New("db err"))

		_, err := repo.SwapPasswordHash(context.Background(), "u-1", "old", "new")
		require.Error(t, err)
	})
}

func TestSetActive_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+is_active\s*=\s*\$2`).WithArgs("u-x", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "u-x", models.AccountDisabled)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMarkVerified(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+is_verified\s*=\s*TRUE,\s*verified_at\s*=\s*\$2.*WHERE\s+email\s*=\s*\$1$`).
		WithArgs("a@x.com", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkVerified(context.Background(), "a@x.com", at))
}

func TestUpdateEmail_ClearsVerification(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+email\s*=\s*\$2,\s*is_verified\s*=\s*FALSE,\s*verified_at\s*=\s*NULL.*WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-1", "b@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateEmail(context.Background(), "u-1", "b@x.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmail_Conflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+email`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	err := repo.UpdateEmail(context.Background(), "u-1", "b@x.com")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLinkRestaurant(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+restaurant_id\s*=\s*\$2,\s*setup_complete\s*=\s*TRUE`).
		WithArgs("u-1", "r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.LinkRestaurant(context.Background(), "u-1", "r-1"))
}
