// Package repository declares the storage interfaces the services depend on.
//
// Lookups that may legitimately find nothing return (value, found, err)
// instead of a nil pointer or a NotFound error, so callers have to handle the
// absent case explicitly. err is reserved for real storage failures.
package repository

import (
	"context"

	"github.com/sakif/keep-bouncing-back/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// AccountRepository is the Account Directory.
//
// Emails passed in must already be normalized. Create and Update return an
// apperror.ErrConflict error when the email is taken by another account, so
// the unique constraint still holds if two registrations race past the
// service's read-check.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	FindAccountByID(ctx context.Context, id int64) (*model.Account, bool, error)
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, bool, error)
	ListAccounts(ctx context.Context, opts ListOptions) ([]model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	DeleteAccount(ctx context.Context, id int64) error
}

// KitRepository links accounts to catalog equipment.
type KitRepository interface {
	AddToKit(ctx context.Context, accountID, equipmentID int64) error
	RemoveFromKit(ctx context.Context, accountID, equipmentID int64) error
	ListKit(ctx context.Context, accountID int64) ([]model.Equipment, error)
}

type TrickRepository interface {
	ListTricks(ctx context.Context, level *int) ([]model.Trick, error)
	FindTricksByIDs(ctx context.Context, ids []int64) ([]model.Trick, error)
	// InsertTrickIfMissing adds the trick unless one with the same name exists.
	// It reports whether a row was inserted.
	InsertTrickIfMissing(ctx context.Context, name string, level int) (bool, error)
}

type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, equipment *model.Equipment) error
	FindEquipmentByID(ctx context.Context, id int64) (*model.Equipment, bool, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
}

type PegueFilter struct {
	UserID *int64
	ListOptions
}

type PegueRepository interface {
	// CreatePegue stores the pegue and its trick links in one transaction.
	CreatePegue(ctx context.Context, pegue *model.Pegue) error
	FindPegueByID(ctx context.Context, id int64) (*model.Pegue, bool, error)
	ListPegues(ctx context.Context, filter PegueFilter) ([]model.Pegue, error)
	DeletePegue(ctx context.Context, id int64) error
}

// Pinger is implemented by stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
