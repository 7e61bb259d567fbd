package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, name, email, password_hash, created_at`

// CreateAccount inserts a new account and fills in its ID and CreatedAt.
//
// The UNIQUE constraint on email is the final authority on uniqueness: a
// violation is reported as apperror.ErrConflict, never as a raw driver error.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	account.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", "email")
		}
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading account id: %w", err)
	}
	account.ID = id

	return nil
}

// FindAccountByID returns (nil, false, nil) when no account has this id.
func (db *DB) FindAccountByID(ctx context.Context, id int64) (*model.Account, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	account, found, err := scanAccount(row)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: getting account %d: %w", id, err)
	}
	return account, found, nil
}

// FindAccountByEmail expects an already normalized email.
func (db *DB) FindAccountByEmail(ctx context.Context, email string) (*model.Account, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)

	account, found, err := scanAccount(row)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: getting account by email: %w", err)
	}
	return account, found, nil
}

func (db *DB) ListAccounts(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	limit, offset := clampPage(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 ORDER BY id
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0, limit)
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateAccount writes name, email and password hash. id and created_at are immutable.
func (db *DB) UpdateAccount(ctx context.Context, account *model.Account) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET name = ?, email = ?, password_hash = ? WHERE id = ?`,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", "email")
		}
		return fmt.Errorf("sqlite: updating account %d: %w", account.ID, err)
	}

	return requireAffected(result, "account", account.ID)
}

// UpdatePasswordHash replaces only the stored hash. Used when a login
// upgrades a legacy or outdated hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password hash for account %d: %w", id, err)
	}
	return requireAffected(result, "account", id)
}

// DeleteAccount hard-deletes the account. Pegues and kit links go with it
// (ON DELETE CASCADE).
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %d: %w", id, err)
	}
	return requireAffected(result, "account", id)
}

func scanAccount(row *sql.Row) (*model.Account, bool, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

// requireAffected turns a zero-row UPDATE/DELETE into a NotFound error.
func requireAffected(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, fmt.Sprint(id))
	}
	return nil
}

// clampPage applies the default and maximum page size.
func clampPage(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
