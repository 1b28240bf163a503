package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

func newRestaurantService(t *testing.T) (*RestaurantService, *memStore, func(commit bool)) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newMemStore()
	expectTx := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	return NewRestaurantService(db, store, discard()), store, expectTx
}

func TestRestaurantRegister_LinksOwner(t *testing.T) {
	s, store, expectTx := newRestaurantService(t)
	owner := store.addAccount("a@x.io", "h")
	expectTx(true)

	rest, err := s.Register(context.Background(), owner.ID, RestaurantInput{
		Name:          "Spice Hub",
		ContactNumber: "5551234567",
		Address:       "1 Main St",
		Email:         strPtr("hub@x.io"),
		MinOrderTime:  10,
		MaxOrderTime:  40,
	})
	require.NoError(t, err)
	assert.True(t, rest.Active)

	acc := store.account(owner.ID)
	require.NotNil(t, acc.RestaurantID)
	assert.Equal(t, rest.ID, *acc.RestaurantID)
	assert.True(t, acc.SetupComplete)
	assert.Equal(t, "Spice Hub", store.profile("a@x.io").RestaurantName)

	mine, err := s.Mine(context.Background(), owner.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(rest, mine); diff != "" {
		t.Fatalf("Mine mismatch (-want +got):\n%s", diff)
	}

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRestaurantRegister_Conflicts(t *testing.T) {
	s, store, expectTx := newRestaurantService(t)
	owner := store.addAccount("a@x.io", "h")
	store.restaurants["r-1"] = &models.Restaurant{ID: "r-1", ContactNumber: "5551234567", Email: strPtr("hub@x.io")}

	expectTx(false)
	_, err := s.Register(context.Background(), owner.ID, RestaurantInput{Name: "X", ContactNumber: "5551234567", Address: "a"})
	var cerr *common.ConflictError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, "restaurantContactNumber", cerr.Field)

	expectTx(false)
	_, err = s.Register(context.Background(), owner.ID, RestaurantInput{Name: "X", ContactNumber: "000", Address: "a", Email: strPtr("hub@x.io")})
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, "restaurantEmail", cerr.Field)

	assert.Nil(t, store.account(owner.ID).RestaurantID)
}

func TestRestaurantRegister_Validation(t *testing.T) {
	s, store, _ := newRestaurantService(t)
	owner := store.addAccount("a@x.io", "h")

	_, err := s.Register(context.Background(), owner.ID, RestaurantInput{Name: "X", MinOrderTime: 30, MaxOrderTime: 10})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "restaurantContactNumber")
	assert.Contains(t, verr.Fields, "address")
	assert.Contains(t, verr.Fields, "maxOrderTime")
}

func TestRestaurantMine_NotSetUp(t *testing.T) {
	s, store, _ := newRestaurantService(t)
	owner := store.addAccount("a@x.io", "h")

	_, err := s.Mine(context.Background(), owner.ID)
	require.ErrorIs(t, err, common.ErrRestaurantNotFound)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
