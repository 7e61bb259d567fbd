package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of every repository interface.
// Hand-written so each test can see exactly what the store does.
type fakeStore struct {
	accounts  map[int64]*model.Account
	tricks    map[int64]model.Trick
	equipment map[int64]model.Equipment
	kit       map[int64]map[int64]bool
	pegues    map[int64]*model.Pegue
	nextID    int64

	// set to a non-nil error to simulate a database failure
	findErr   error
	rehashErr error

	hashUpdates int
}

var (
	_ repository.AccountRepository   = (*fakeStore)(nil)
	_ repository.KitRepository       = (*fakeStore)(nil)
	_ repository.TrickRepository     = (*fakeStore)(nil)
	_ repository.EquipmentRepository = (*fakeStore)(nil)
	_ repository.PegueRepository     = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:  map[int64]*model.Account{},
		tricks:    map[int64]model.Trick{},
		equipment: map[int64]model.Equipment{},
		kit:       map[int64]map[int64]bool{},
		pegues:    map[int64]*model.Pegue{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateAccount(_ context.Context, a *model.Account) error {
	for _, other := range f.accounts {
		if other.Email == a.Email {
			return apperror.Conflict("account", "email")
		}
	}
	a.ID = f.id()
	a.CreatedAt = time.Now().UTC()
	stored := *a
	f.accounts[a.ID] = &stored
	return nil
}

func (f *fakeStore) FindAccountByID(_ context.Context, id int64) (*model.Account, bool, error) {
	if f.findErr != nil {
		return nil, false, f.findErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, false, nil
	}
	c := *a
	return &c, true, nil
}

func (f *fakeStore) FindAccountByEmail(_ context.Context, email string) (*model.Account, bool, error) {
	if f.findErr != nil {
		return nil, false, f.findErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			c := *a
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, opts repository.ListOptions) ([]model.Account, error) {
	out := []model.Account{}
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Offset >= len(out) {
		return []model.Account{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a *model.Account) error {
	if _, ok := f.accounts[a.ID]; !ok {
		return apperror.NotFound("account", strconv.FormatInt(a.ID, 10))
	}
	stored := *a
	f.accounts[a.ID] = &stored
	return nil
}

func (f *fakeStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	if f.rehashErr != nil {
		return f.rehashErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account", strconv.FormatInt(id, 10))
	}
	a.PasswordHash = hash
	f.hashUpdates++
	return nil
}

func (f *fakeStore) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return apperror.NotFound("account", strconv.FormatInt(id, 10))
	}
	delete(f.accounts, id)
	delete(f.kit, id)
	for pid, p := range f.pegues {
		if p.UserID == id {
			delete(f.pegues, pid)
		}
	}
	return nil
}

func (f *fakeStore) AddToKit(_ context.Context, accountID, equipmentID int64) error {
	if _, ok := f.equipment[equipmentID]; !ok {
		return apperror.NotFound("equipment", strconv.FormatInt(equipmentID, 10))
	}
	if f.kit[accountID] == nil {
		f.kit[accountID] = map[int64]bool{}
	}
	f.kit[accountID][equipmentID] = true
	return nil
}

func (f *fakeStore) RemoveFromKit(_ context.Context, accountID, equipmentID int64) error {
	if !f.kit[accountID][equipmentID] {
		return apperror.NotFound("kit equipment", strconv.FormatInt(equipmentID, 10))
	}
	delete(f.kit[accountID], equipmentID)
	return nil
}

func (f *fakeStore) ListKit(_ context.Context, accountID int64) ([]model.Equipment, error) {
	out := []model.Equipment{}
	for id := range f.kit[accountID] {
		out = append(out, f.equipment[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListTricks(_ context.Context, level *int) ([]model.Trick, error) {
	out := []model.Trick{}
	for _, t := range f.tricks {
		if level == nil || t.Level == *level {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindTricksByIDs(_ context.Context, ids []int64) ([]model.Trick, error) {
	out := []model.Trick{}
	for _, id := range ids {
		if t, ok := f.tricks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertTrickIfMissing(_ context.Context, name string, level int) (bool, error) {
	for _, t := range f.tricks {
		if t.Name == name {
			return false, nil
		}
	}
	id := f.id()
	f.tricks[id] = model.Trick{ID: id, Name: name, Level: level}
	return true, nil
}

func (f *fakeStore) CreateEquipment(_ context.Context, e *model.Equipment) error {
	e.ID = f.id()
	e.CreatedAt = time.Now().UTC()
	f.equipment[e.ID] = *e
	return nil
}

func (f *fakeStore) FindEquipmentByID(_ context.Context, id int64) (*model.Equipment, bool, error) {
	e, ok := f.equipment[id]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (f *fakeStore) ListEquipment(_ context.Context) ([]model.Equipment, error) {
	out := []model.Equipment{}
	for _, e := range f.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreatePegue(_ context.Context, p *model.Pegue) error {
	if _, ok := f.accounts[p.UserID]; !ok {
		return apperror.NotFound("account", strconv.FormatInt(p.UserID, 10))
	}
	p.ID = f.id()
	stored := *p
	f.pegues[p.ID] = &stored
	return nil
}

func (f *fakeStore) FindPegueByID(_ context.Context, id int64) (*model.Pegue, bool, error) {
	p, ok := f.pegues[id]
	if !ok {
		return nil, false, nil
	}
	c := *p
	return &c, true, nil
}

func (f *fakeStore) ListPegues(_ context.Context, filter repository.PegueFilter) ([]model.Pegue, error) {
	out := []model.Pegue{}
	for _, p := range f.pegues {
		if filter.UserID == nil || p.UserID == *filter.UserID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeStore) DeletePegue(_ context.Context, id int64) error {
	if _, ok := f.pegues[id]; !ok {
		return apperror.NotFound("pegue", strconv.FormatInt(id, 10))
	}
	delete(f.pegues, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// cheapArgon2 keeps each hash in the low milliseconds.
var cheapArgon2 = auth.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(cheapArgon2)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	return h
}

func newTestAccountService(t *testing.T) (*AccountService, *fakeStore, *auth.TokenService) {
	t.Helper()
	store := newFakeStore()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "service-test-secret-0123"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAccountService(store, store, newTestHasher(t), tokens, testLogger()), store, tokens
}

func ptr[T any](v T) *T { return &v }
