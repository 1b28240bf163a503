package restaurants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

const restaurantColumns = `id, name, contact_number, address, email, logo_url, min_order_time, max_order_time, staff_count, cuisine, gps_address, is_active, created_at, updated_at`

var conflictFields = map[string]string{"contact_number": "restaurantContactNumber", "email": "restaurantEmail"}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRestaurant(row interface{ Scan(dest ...any) error }) (*models.Restaurant, error) {
	r := &models.Restaurant{}
	var email sql.NullString

	err := row.Scan(&r.ID, &r.Name, &r.ContactNumber, &r.Address, &email, &r.LogoURL,
		&r.MinOrderTime, &r.MaxOrderTime, &r.StaffCount, &r.Cuisine, &r.GPSAddress,
		&r.Active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		r.Email = &email.String
	}
	return r, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rest *models.Restaurant) (*models.Restaurant, error) {
	query :=
		`INSERT INTO restaurants (name, contact_number, address, email, logo_url, min_order_time, max_order_time, staff_count, cuisine, gps_address, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		rest.Name, rest.ContactNumber, rest.Address, rest.Email, rest.LogoURL,
		rest.MinOrderTime, rest.MaxOrderTime, rest.StaffCount, rest.Cuisine, rest.GPSAddress, rest.Active).
		Scan(&rest.ID, &rest.CreatedAt, &rest.UpdatedAt)
	if err != nil {
		if cerr := dbx.ConflictFromError(err, "restaurants", conflictFields); errors.Is(cerr, common.ErrConflict) {
			return nil, cerr
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rest, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Restaurant, error) {
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rest, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	return r.getOne(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByContactOrEmail(ctx context.Context, contactNumber string, email *string) (*models.Restaurant, error) {
	return r.getOne(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants
		 WHERE contact_number = $1 OR ($2::text IS NOT NULL AND email = $2)
		 LIMIT 1`, contactNumber, email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Restaurant, 0)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
