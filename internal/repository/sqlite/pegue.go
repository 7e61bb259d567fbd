package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

var _ repository.PegueRepository = (*DB)(nil)

// CreatePegue inserts the pegue and its trick links in one transaction, so a
// failure halfway never leaves a session without its tricks.
func (db *DB) CreatePegue(ctx context.Context, pegue *model.Pegue) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning pegue transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO pegues (user_id, equipment, date, duration, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		pegue.UserID,
		pegue.Equipment,
		pegue.Date.UTC(),
		pegue.Duration,
		pegue.Notes,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("account", fmt.Sprint(pegue.UserID))
		}
		return fmt.Errorf("sqlite: inserting pegue: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading pegue id: %w", err)
	}

	for _, trick := range pegue.Tricks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pegue_tricks (pegue_id, trick_id) VALUES (?, ?)`,
			id, trick.ID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.ValidationFailed("tricks_ids", "one or more tricks do not exist")
			}
			return fmt.Errorf("sqlite: linking trick %d to pegue %d: %w", trick.ID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing pegue: %w", err)
	}

	pegue.ID = id
	return nil
}

func (db *DB) FindPegueByID(ctx context.Context, id int64) (*model.Pegue, bool, error) {
	var p model.Pegue
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, equipment, date, duration, notes FROM pegues WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Equipment, &p.Date, &p.Duration, &p.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: getting pegue %d: %w", id, err)
	}

	pegues := []model.Pegue{p}
	if err := db.attachTricks(ctx, pegues); err != nil {
		return nil, false, err
	}
	return &pegues[0], true, nil
}

// ListPegues returns pegues newest first, each with its tricks.
func (db *DB) ListPegues(ctx context.Context, filter repository.PegueFilter) ([]model.Pegue, error) {
	limit, offset := clampPage(filter.ListOptions)

	query := `SELECT id, user_id, equipment, date, duration, notes FROM pegues`
	var args []any
	if filter.UserID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *filter.UserID)
	}
	query += ` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pegues: %w", err)
	}

	pegues := make([]model.Pegue, 0, limit)
	for rows.Next() {
		var p model.Pegue
		if err := rows.Scan(&p.ID, &p.UserID, &p.Equipment, &p.Date, &p.Duration, &p.Notes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning pegue row: %w", err)
		}
		pegues = append(pegues, p)
	}
	err = rows.Err()
	// The pool holds a single connection: rows must be released before the
	// trick query below can run.
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("sqlite: iterating pegues: %w", err)
	}

	if err := db.attachTricks(ctx, pegues); err != nil {
		return nil, err
	}
	return pegues, nil
}

func (db *DB) DeletePegue(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM pegues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting pegue %d: %w", id, err)
	}
	return requireAffected(result, "pegue", id)
}

// attachTricks loads the tricks of every pegue with a single query.
func (db *DB) attachTricks(ctx context.Context, pegues []model.Pegue) error {
	if len(pegues) == 0 {
		return nil
	}

	index := make(map[int64]int, len(pegues))
	args := make([]any, len(pegues))
	for i := range pegues {
		pegues[i].Tricks = []model.Trick{}
		index[pegues[i].ID] = i
		args[i] = pegues[i].ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(pegues)), ",")

	rows, err := db.conn.QueryContext(ctx,
		`SELECT pt.pegue_id, t.id, t.name, t.level
		 FROM pegue_tricks pt
		 JOIN tricks t ON t.id = pt.trick_id
		 WHERE pt.pegue_id IN (`+placeholders+`)
		 ORDER BY t.level, t.name`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading pegue tricks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pegueID int64
		var t model.Trick
		if err := rows.Scan(&pegueID, &t.ID, &t.Name, &t.Level); err != nil {
			return fmt.Errorf("sqlite: scanning pegue trick row: %w", err)
		}
		i := index[pegueID]
		pegues[i].Tricks = append(pegues[i].Tricks, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating pegue tricks: %w", err)
	}
	return nil
}
