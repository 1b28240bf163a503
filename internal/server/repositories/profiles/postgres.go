package profiles

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

const profileColumns = `id, full_name, email, contact_number, restaurant_name, is_verified, verified_at, is_active, created_at, updated_at`

// conflictFields maps unique columns to request field names.
var conflictFields = map[string]string{"email": "email", "contact_number": "contactNumber"}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanProfile(row interface{ Scan(dest ...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	var verifiedAt sql.NullTime

	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.ContactNumber, &p.RestaurantName,
		&p.Verified, &verifiedAt, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	return p, nil
}

func classify(err error) error {
	if cerr := dbx.ConflictFromError(err, "profiles", conflictFields); errors.Is(cerr, common.ErrConflict) {
		return cerr
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query :=
		`INSERT INTO profiles (full_name, email, contact_number, restaurant_name, is_verified, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		profile.FullName, profile.Email, profile.ContactNumber, profile.RestaurantName, profile.Verified, profile.Active).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}

	return profile, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindActiveByContact(ctx context.Context, contactNumber string) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE contact_number = $1 AND is_active = 1`, contactNumber)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
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

func (r *PostgresRepository) Update(ctx context.Context, email string, profile *models.Profile) error {
	return r.execOne(ctx,
		`UPDATE profiles
		 SET full_name = $2, email = $3, contact_number = $4, restaurant_name = $5,
		     is_verified = $6, verified_at = $7, updated_at = now()
		 WHERE email = $1`,
		email, profile.FullName, profile.Email, profile.ContactNumber, profile.RestaurantName,
		profile.Verified, profile.VerifiedAt)
}

func (r *PostgresRepository) SetActive(ctx context.Context, email string, active int) error {
	return r.execOne(ctx,
		`UPDATE profiles SET is_active = $2, updated_at = now() WHERE email = $1`, email, active)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE profiles SET is_verified = TRUE, verified_at = $2, updated_at = now() WHERE email = $1`, email, at)
}

func (r *PostgresRepository) SetRestaurantName(ctx context.Context, email string, name string) error {
	return r.execOne(ctx,
		`UPDATE profiles SET restaurant_name = $2, updated_at = now() WHERE email = $1`, email, name)
}
