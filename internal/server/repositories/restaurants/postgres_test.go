package restaurants

import (
	"context"
	"database/sql"
	"errors"
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

var cols = []string{"id", "name", "contact_number", "address", "email", "logo_url", "min_order_time", "max_order_time", "staff_count", "cuisine", "gps_address", "is_active", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+restaurants\s*\(name,.*RETURNING\s+id,\s*created_at,\s*updated_at$`).
		WithArgs("Cafe", "555", "Main St", nil, "", 10, 40, 3, "indian", "", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("r-1", now, now))

	got, err := repo.Create(context.Background(), &models.Restaurant{
		Name: "Cafe", ContactNumber: "555", Address: "Main St", MinOrderTime: 10, MaxOrderTime: 40, StaffCount: 3, Cuisine: "indian", Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateContact(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+restaurants`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "restaurants_contact_number_key"})

	_, err := repo.Create(context.Background(), &models.Restaurant{Name: "Cafe", ContactNumber: "555"})

	var ce *common.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "restaurantContactNumber", ce.Field)
}

func TestFindByContactOrEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	email := "cafe@x.com"

	q := `(?s)FROM\s+restaurants\s+WHERE\s+contact_number\s*=\s*\$1\s+OR`
	mock.ExpectQuery(q).WithArgs("555", email).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("r-1", "Cafe", "555", "", email, "", int64(0), int64(0), int64(0), "", "", true, now, now))
	mock.ExpectQuery(q).WithArgs("777", nil).WillReturnError(sql.ErrNoRows)

	got, err := repo.FindByContactOrEmail(context.Background(), "555", &email)
	require.NoError(t, err)
	require.NotNil(t, got.Email)
	assert.Equal(t, email, *got.Email)

	_, err = repo.FindByContactOrEmail(context.Background(), "777", nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM\s+restaurants\s+ORDER\s+BY\s+created_at$`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r-1", "Cafe", "555", "", nil, "", int64(0), int64(0), int64(0), "", "", true, now, now).
			AddRow("r-2", "Diner", "556", "", nil, "", int64(0), int64(0), int64(0), "", "", false, now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Email)
	assert.False(t, got[1].Active)
}

func TestList_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+restaurants`).WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
