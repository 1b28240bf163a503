package revocations

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

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token_hash, account_id, expires_at, revoked_at, all_devices)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query,
		entry.TokenHash, entry.AccountID, entry.ExpiresAt, entry.RevokedAt, entry.AllDevices); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.RevokedToken, error) {
	e := &models.RevokedToken{}
	if err := row.Scan(&e.TokenHash, &e.AccountID, &e.ExpiresAt, &e.RevokedAt, &e.AllDevices); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Find(ctx context.Context, tokenHash string) (*models.RevokedToken, error) {
	query := `
		SELECT token_hash, account_id, expires_at, revoked_at, all_devices
		FROM revoked_tokens
		WHERE token_hash = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) LatestAllDevices(ctx context.Context, accountID string, now time.Time) (*models.RevokedToken, error) {
	query := `
		SELECT token_hash, account_id, expires_at, revoked_at, all_devices
		FROM revoked_tokens
		WHERE account_id = $1 AND all_devices AND expires_at > $2
		ORDER BY revoked_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID, now))
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
