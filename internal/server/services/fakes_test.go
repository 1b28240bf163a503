package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/accounts"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/profiles"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/restaurants"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/revocations"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

// memStore backs every fake repository. It ignores transactions: a failed
// transaction keeps whatever the fake already wrote.
type memStore struct {
	mu          sync.Mutex
	seq         int
	accounts    map[string]*models.Account // id -> account
	profiles    map[string]*models.Profile // email -> profile
	revoked     map[string]*models.RevokedToken
	restaurants map[string]*models.Restaurant

	// failures injected per method name
	fail map[string]error
	// beforeSwap runs inside SwapPasswordHash before the comparison.
	beforeSwap func()
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[string]*models.Account{},
		profiles:    map[string]*models.Profile{},
		revoked:     map[string]*models.RevokedToken{},
		restaurants: map[string]*models.Restaurant{},
		fail:        map[string]error{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }
func (s *memStore) Accounts(dbx.DBTX) accounts.Repository { return &fakeAccounts{s} }
func (s *memStore) Profiles(dbx.DBTX) profiles.Repository { return &fakeProfiles{s} }
func (s *memStore) Revocations(dbx.DBTX) revocations.Repository { return &fakeRevocations{s} }
func (s *memStore) Restaurants(dbx.DBTX) restaurants.Repository { return &fakeRestaurants{s} }
func (s *memStore) injected(method string) error { return s.fail[method] }

// addAccount stores an active account plus its profile.
func (s *memStore) addAccount(email, hash string) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &models.Account{ID: s.nextID("acc"), Email: email, PasswordHash: hash, Active: models.AccountActive}
	s.accounts[a.ID] = a
	s.profiles[email] = &models.Profile{ID: s.nextID("prof"), Email: email, FullName: "Owner", ContactNumber: "1234567890", Active: models.AccountActive}
	return a
}

func (s *memStore) account(id string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

func (s *memStore) profile(email string) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[email]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

type fakeAccounts struct{ s *memStore }

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("accounts.Create"); err != nil {
		return nil, err
	}
	for _, x := range f.s.accounts {
		if x.Email == a.Email {
			return nil, &common.ConflictError{Field: "email"}
		}
	}
	cp := *a
	cp.ID = f.s.nextID("acc")
	f.s.accounts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeAccounts) get(id string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("accounts.Get"); err != nil {
		return nil, err
	}
	a, ok := f.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return f.get(id)
}

func (f *fakeAccounts) GetByIDForUpdate(_ context.Context, id string) (*models.Account, error) {
	return f.get(id)
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) UpdateEmail(_ context.Context, id, email string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Email = email
	a.Verified = false
	a.VerifiedAt = nil
	return nil
}

func (f *fakeAccounts) SwapPasswordHash(_ context.Context, id, oldHash, newHash string) (bool, error) {
	if f.s.beforeSwap != nil {
		f.s.beforeSwap()
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok || a.PasswordHash != oldHash {
		return false, nil
	}
	a.PasswordHash = newHash
	return true, nil
}

func (f *fakeAccounts) SetActive(_ context.Context, id string, active int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Active = active
	return nil
}

func (f *fakeAccounts) MarkVerified(_ context.Context, email string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("accounts.MarkVerified"); err != nil {
		return err
	}
	for _, a := range f.s.accounts {
		if a.Email == email {
			a.Verified = true
			a.VerifiedAt = &at
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeAccounts) LinkRestaurant(_ context.Context, id, restaurantID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.RestaurantID = &restaurantID
	a.SetupComplete = true
	return nil
}

type fakeProfiles struct{ s *memStore }

func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.profiles[p.Email]; ok {
		return nil, &common.ConflictError{Field: "email"}
	}
	cp := *p
	cp.ID = f.s.nextID("prof")
	f.s.profiles[cp.Email] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.profiles[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) FindActiveByContact(_ context.Context, contact string) ([]*models.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Profile
	for _, p := range f.s.profiles {
		if p.ContactNumber == contact && p.Active == models.AccountActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProfiles) Update(_ context.Context, email string, p *models.Profile) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.profiles[email]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.profiles, email)
	cp := *p
	f.s.profiles[cp.Email] = &cp
	return nil
}

func (f *fakeProfiles) SetActive(_ context.Context, email string, active int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.profiles[email]
	if !ok {
		return common.ErrorNotFound
	}
	p.Active = active
	return nil
}

func (f *fakeProfiles) MarkVerified(_ context.Context, email string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("profiles.MarkVerified"); err != nil {
		return err
	}
	p, ok := f.s.profiles[email]
	if !ok {
		return common.ErrorNotFound
	}
	p.Verified = true
	p.VerifiedAt = &at
	return nil
}

func (f *fakeProfiles) SetRestaurantName(_ context.Context, email, name string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.profiles[email]
	if !ok {
		return common.ErrorNotFound
	}
	p.RestaurantName = name
	return nil
}

type fakeRevocations struct{ s *memStore }

func (f *fakeRevocations) Create(_ context.Context, e *models.RevokedToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("revocations.Create"); err != nil {
		return err
	}
	if _, ok := f.s.revoked[e.TokenHash]; !ok {
		cp := *e
		f.s.revoked[e.TokenHash] = &cp
	}
	return nil
}

func (f *fakeRevocations) Find(_ context.Context, hash string) (*models.RevokedToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.injected("revocations.Find"); err != nil {
		return nil, err
	}
	e, ok := f.s.revoked[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRevocations) LatestAllDevices(_ context.Context, accountID string, now time.Time) (*models.RevokedToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var latest *models.RevokedToken
	for _, e := range f.s.revoked {
		if !e.AllDevices || e.AccountID != accountID || !e.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || e.RevokedAt.After(latest.RevokedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeRevocations) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, e := range f.s.revoked {
		if !e.ExpiresAt.After(now) {
			delete(f.s.revoked, k)
			n++
		}
	}
	return n, nil
}

type fakeRestaurants struct{ s *memStore }

func (f *fakeRestaurants) Create(_ context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *r
	cp.ID = f.s.nextID("rest")
	f.s.restaurants[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRestaurants) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.restaurants[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRestaurants) FindByContactOrEmail(_ context.Context, contact string, email *string) (*models.Restaurant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.restaurants {
		if r.ContactNumber == contact || (email != nil && r.Email != nil && *r.Email == *email) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRestaurants) List(context.Context) ([]*models.Restaurant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]*models.Restaurant, 0, len(f.s.restaurants))
	for _, r := range f.s.restaurants {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func discard() logging.Logger { return logging.Discard() }
