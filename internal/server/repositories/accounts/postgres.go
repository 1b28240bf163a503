package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

const accountColumns = `id, email, password_hash, is_verified, verified_at, is_active, setup_complete, restaurant_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	a := &models.Account{}
	var verifiedAt sql.NullTime
	var restaurantID sql.NullString

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Verified, &verifiedAt,
		&a.Active, &a.SetupComplete, &restaurantID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		a.VerifiedAt = &verifiedAt.Time
	}
	if restaurantID.Valid {
		a.RestaurantID = &restaurantID.String
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, is_verified, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.Verified, account.Active).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if cerr := dbx.ConflictFromError(err, "accounts", nil); errors.Is(cerr, common.ErrConflict) {
			return nil, cerr
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// execOne runs an UPDATE expected to touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if cerr := dbx.ConflictFromError(err, "accounts", nil); errors.Is(cerr, common.ErrConflict) {
			return cerr
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id string, email string) error {
	return r.execOne(ctx,
		`UPDATE accounts SET email = $2, is_verified = FALSE, verified_at = NULL, updated_at = now() WHERE id = $1`, id, email)
}

func (r *PostgresRepository) SwapPasswordHash(ctx context.Context, id string, oldHash string, newHash string) (bool, error) {
	err := r.execOne(ctx,
		`UPDATE accounts SET password_hash = $3, updated_at = now() WHERE id = $1 AND password_hash = $2`,
		id, oldHash, newHash)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active int) error {
	return r.execOne(ctx,
		`UPDATE accounts SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE accounts SET is_verified = TRUE, verified_at = $2, updated_at = now() WHERE email = $1`, email, at)
}

func (r *PostgresRepository) LinkRestaurant(ctx context.Context, id string, restaurantID string) error {
	return r.execOne(ctx,
		`UPDATE accounts SET restaurant_id = $2, setup_complete = TRUE, updated_at = now() WHERE id = $1`, id, restaurantID)
}
