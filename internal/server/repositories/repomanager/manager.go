package repomanager

import (
	"context"
	"database/sql"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/accounts"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/profiles"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/restaurants"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/revocations"
)

// RepositoryManager hands out repositories bound to either the pool or a
// transaction, so services can compose several of them under one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Revocations(db dbx.DBTX) revocations.Repository
	Restaurants(db dbx.DBTX) restaurants.Repository
}
