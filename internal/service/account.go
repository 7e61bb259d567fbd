// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain Go values and return apperror values; they know
// nothing about HTTP. They depend on repository interfaces, never on the
// sqlite package, so tests run against in-memory fakes.
//
// OWNERSHIP:
// Every method that changes an account, a kit or a pegue takes the
// authenticated account and calls auth.Authorize before the store is touched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

const reasonInvalidCredentials = "invalid_credentials"

// AccountService handles registration, login, profile changes, deletion and
// the per-account equipment kit.
type AccountService struct {
	accounts repository.AccountRepository
	kit      repository.KitRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	logger   *slog.Logger

	// dummyHash is verified against when the email is unknown, so a login
	// for a missing account costs the same as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	accounts repository.AccountRepository,
	kit repository.KitRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		kit:      kit,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateInput is a partial update: nil fields are left unchanged.
// NewPassword requires CurrentPassword.
type UpdateInput struct {
	Name            *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

// LoginResult bundles the account and its freshly issued token.
type LoginResult struct {
	Account *model.Account
	Token   auth.Token
}

// Register validates the input, hashes the password and stores the account.
//
// The email read-check gives a clean Conflict in the common case; the UNIQUE
// constraint still catches two registrations racing past it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}

	if _, found, err := s.accounts.FindAccountByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	} else if found {
		return nil, apperror.Conflict("account", "email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &model.Account{Name: name, Email: email, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create account", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info("account registered", slog.Int64("account_id", account.ID))
	return account, nil
}

// Login verifies the credentials and issues an access token.
//
// An unknown email and a wrong password produce the same error, so the
// response does not reveal which emails are registered.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	account, found, err := s.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	if !found {
		s.hasher.Verify(s.dummy(), password)
		s.logger.Info("login failed", slog.String("reason", "unknown_email"))
		return nil, apperror.Unauthenticated(reasonInvalidCredentials, "invalid email or password")
	}
	if !s.hasher.Verify(account.PasswordHash, password) {
		s.logger.Info("login failed", slog.String("reason", "wrong_password"), slog.Int64("account_id", account.ID))
		return nil, apperror.Unauthenticated(reasonInvalidCredentials, "invalid email or password")
	}

	if s.hasher.NeedsRehash(account.PasswordHash) {
		s.upgradeHash(ctx, account, password)
	}

	token, err := s.tokens.Issue(strconv.FormatInt(account.ID, 10))
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("login succeeded", slog.Int64("account_id", account.ID))
	return &LoginResult{Account: account, Token: token}, nil
}

// upgradeHash replaces a legacy or outdated hash. Failure is logged only:
// the login itself already succeeded.
func (s *AccountService) upgradeHash(ctx context.Context, account *model.Account, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, account.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", slog.Int64("account_id", account.ID), slog.String("error", err.Error()))
		return
	}
	account.PasswordHash = hash
	s.logger.Info("password hash upgraded", slog.Int64("account_id", account.ID))
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

// Get returns apperror.ErrNotFound when no account has this id.
func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	account, found, err := s.accounts.FindAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading account %d: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("account", strconv.FormatInt(id, 10))
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context, limit, offset int) ([]model.Account, error) {
	accounts, err := s.accounts.ListAccounts(ctx, page(limit, offset))
	if err != nil {
		s.logger.Error("failed to list accounts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// Update applies a partial update to the target account on behalf of current.
//
// Changing the password re-verifies the current one: a stolen token alone is
// not enough to lock the owner out.
func (s *AccountService) Update(ctx context.Context, current *model.Account, targetID int64, in UpdateInput) (*model.Account, error) {
	if err := auth.Authorize(current, targetID); err != nil {
		return nil, err
	}

	if in.Name == nil && in.Email == nil && in.NewPassword == nil {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	account, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	updated := *account

	if in.Name != nil {
		if updated.Name, err = validateName(*in.Name); err != nil {
			return nil, err
		}
	}

	if in.Email != nil {
		if updated.Email, err = validateEmail(*in.Email); err != nil {
			return nil, err
		}
		if updated.Email != account.Email {
			other, found, err := s.accounts.FindAccountByEmail(ctx, updated.Email)
			if err != nil {
				return nil, fmt.Errorf("checking email: %w", err)
			}
			if found && other.ID != account.ID {
				return nil, apperror.Conflict("account", "email")
			}
		}
	}

	if in.NewPassword != nil {
		if in.CurrentPassword == nil || *in.CurrentPassword == "" {
			return nil, apperror.ValidationFailed("currentPassword", "current password is required to set a new one")
		}
		if !s.hasher.Verify(account.PasswordHash, *in.CurrentPassword) {
			s.logger.Info("password change rejected", slog.Int64("account_id", account.ID))
			return nil, apperror.Unauthenticated(reasonInvalidCredentials, "current password is incorrect")
		}
		if err := validatePassword("newPassword", *in.NewPassword); err != nil {
			return nil, err
		}
		if updated.PasswordHash, err = s.hasher.Hash(*in.NewPassword); err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
	}

	if err := s.accounts.UpdateAccount(ctx, &updated); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update account", slog.Int64("account_id", targetID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("updating account: %w", err)
	}

	s.logger.Info("account updated",
		slog.Int64("account_id", targetID),
		slog.Bool("password_changed", in.NewPassword != nil),
	)
	return &updated, nil
}

// Delete removes the target account, its pegues and its kit.
func (s *AccountService) Delete(ctx context.Context, current *model.Account, targetID int64) error {
	if err := auth.Authorize(current, targetID); err != nil {
		return err
	}
	if err := s.accounts.DeleteAccount(ctx, targetID); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	s.logger.Info("account deleted", slog.Int64("account_id", targetID))
	return nil
}

// Kit lists the equipment attached to an account.
func (s *AccountService) Kit(ctx context.Context, accountID int64) ([]model.Equipment, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}
	items, err := s.kit.ListKit(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing kit: %w", err)
	}
	return items, nil
}

// AddToKit is idempotent; unknown equipment is ErrNotFound.
func (s *AccountService) AddToKit(ctx context.Context, current *model.Account, accountID, equipmentID int64) error {
	if err := auth.Authorize(current, accountID); err != nil {
		return err
	}
	if err := s.kit.AddToKit(ctx, accountID, equipmentID); err != nil {
		return fmt.Errorf("adding to kit: %w", err)
	}
	return nil
}

func (s *AccountService) RemoveFromKit(ctx context.Context, current *model.Account, accountID, equipmentID int64) error {
	if err := auth.Authorize(current, accountID); err != nil {
		return err
	}
	if err := s.kit.RemoveFromKit(ctx, accountID, equipmentID); err != nil {
		return fmt.Errorf("removing from kit: %w", err)
	}
	return nil
}
