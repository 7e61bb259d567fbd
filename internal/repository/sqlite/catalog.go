package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

var (
	_ repository.TrickRepository     = (*DB)(nil)
	_ repository.EquipmentRepository = (*DB)(nil)
	_ repository.KitRepository       = (*DB)(nil)
)

// =========================================================================
// TRICKS
// =========================================================================

// ListTricks returns the catalog ordered by level then name. A nil level
// returns every level.
func (db *DB) ListTricks(ctx context.Context, level *int) ([]model.Trick, error) {
	query := `SELECT id, name, level FROM tricks`
	var args []any
	if level != nil {
		query += ` WHERE level = ?`
		args = append(args, *level)
	}
	query += ` ORDER BY level, name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tricks: %w", err)
	}
	defer rows.Close()

	return scanTricks(rows)
}

// FindTricksByIDs returns the tricks whose id is in ids. Unknown ids are
// simply absent from the result; callers compare lengths.
func (db *DB) FindTricksByIDs(ctx context.Context, ids []int64) ([]model.Trick, error) {
	if len(ids) == 0 {
		return []model.Trick{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, level FROM tricks WHERE id IN (`+placeholders+`) ORDER BY level, name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding tricks: %w", err)
	}
	defer rows.Close()

	return scanTricks(rows)
}

func (db *DB) InsertTrickIfMissing(ctx context.Context, name string, level int) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO tricks (name, level) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, level,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting trick %q: %w", name, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

func scanTricks(rows *sql.Rows) ([]model.Trick, error) {
	tricks := []model.Trick{}
	for rows.Next() {
		var t model.Trick
		if err := rows.Scan(&t.ID, &t.Name, &t.Level); err != nil {
			return nil, fmt.Errorf("sqlite: scanning trick row: %w", err)
		}
		tricks = append(tricks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tricks: %w", err)
	}
	return tricks, nil
}

// =========================================================================
// EQUIPMENT
// =========================================================================

func (db *DB) CreateEquipment(ctx context.Context, equipment *model.Equipment) error {
	equipment.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO equipment (name, created_at) VALUES (?, ?)`,
		equipment.Name, equipment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading equipment id: %w", err)
	}
	equipment.ID = id
	return nil
}

func (db *DB) FindEquipmentByID(ctx context.Context, id int64) (*model.Equipment, bool, error) {
	var e model.Equipment
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM equipment WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: getting equipment %d: %w", id, err)
	}
	return &e, true, nil
}

func (db *DB) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at FROM equipment ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing equipment: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}

func scanEquipment(rows *sql.Rows) ([]model.Equipment, error) {
	items := []model.Equipment{}
	for rows.Next() {
		var e model.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning equipment row: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating equipment: %w", err)
	}
	return items, nil
}

// =========================================================================
// KIT (account ↔ equipment)
// =========================================================================

// AddToKit links equipment to an account. Adding an item twice is a no-op.
func (db *DB) AddToKit(ctx context.Context, accountID, equipmentID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO account_equipment (account_id, equipment_id) VALUES (?, ?)
		 ON CONFLICT(account_id, equipment_id) DO NOTHING`,
		accountID, equipmentID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("equipment", fmt.Sprint(equipmentID))
		}
		return fmt.Errorf("sqlite: adding equipment %d to kit of account %d: %w", equipmentID, accountID, err)
	}
	return nil
}

func (db *DB) RemoveFromKit(ctx context.Context, accountID, equipmentID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM account_equipment WHERE account_id = ? AND equipment_id = ?`,
		accountID, equipmentID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing equipment %d from kit of account %d: %w", equipmentID, accountID, err)
	}
	return requireAffected(result, "kit equipment", equipmentID)
}

func (db *DB) ListKit(ctx context.Context, accountID int64) ([]model.Equipment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, e.name, e.created_at
		 FROM equipment e
		 JOIN account_equipment ae ON ae.equipment_id = e.id
		 WHERE ae.account_id = ?
		 ORDER BY e.name, e.id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing kit of account %d: %w", accountID, err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}
