package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var itemSorts = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"description": "description COLLATE NOCASE",
	"completed":   "completed",
}

const itemColumns = `id, note_id, project_id, description, completed, priority, assignee, category, created_at, updated_at`

// CreateActionItem stores a new, uncompleted item. ID and timestamps on it
// are assigned here.
func (s *Store) CreateActionItem(ctx context.Context, it ActionItem) (ActionItem, error) {
	items, err := s.CreateActionItems(ctx, []ActionItem{it})
	if err != nil {
		return ActionItem{}, err
	}
	return items[0], nil
}

// CreateActionItems inserts all items in a single transaction.
func (s *Store) CreateActionItems(ctx context.Context, items []ActionItem) ([]ActionItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO action_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	out := make([]ActionItem, 0, len(items))
	for _, it := range items {
		t := clock()
		it.ID = uuid.New().String()
		it.CreatedAt, it.UpdatedAt = t, t
		if _, err := stmt.ExecContext(ctx,
			it.ID, it.NoteID, it.ProjectID, it.Description, it.Completed,
			it.Priority, it.Assignee, it.Category, formatTime(t), formatTime(t),
		); err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY") {
				return nil, fmt.Errorf("inserting action item: %w", ErrNotFound)
			}
			return nil, fmt.Errorf("inserting action item: %w", err)
		}
		out = append(out, it)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing action items: %w", err)
	}
	return out, nil
}

func (s *Store) GetActionItem(ctx context.Context, id string) (ActionItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM action_items WHERE id = ?`, id)
	it, err := scanActionItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ActionItem{}, ErrNotFound
	}
	return it, err
}

// ListActionItems returns items matching f, oldest first by default.
func (s *Store) ListActionItems(ctx context.Context, f ActionItemFilter, opts ListOptions) ([]ActionItem, error) {
	var where []string
	var args []any
	if f.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *f.Completed)
	}
	if f.NoteID != nil {
		where = append(where, "note_id = ?")
		args = append(args, *f.NoteID)
	}
	if f.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *f.ProjectID)
	}
	if opts.Query != "" {
		where = append(where, `description LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(opts.Query))
	}

	query := `SELECT ` + itemColumns + ` FROM action_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(opts.Sort, itemSorts, "created_at ASC, rowid ASC")
	lim, largs := limitOffset(opts)
	query += lim
	args = append(args, largs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing action items: %w", err)
	}
	defer rows.Close()

	items := []ActionItem{}
	for rows.Next() {
		it, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) UpdateActionItem(ctx context.Context, id string, p ActionItemPatch) (ActionItem, error) {
	it, err := s.GetActionItem(ctx, id)
	if err != nil {
		return ActionItem{}, err
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	if p.ProjectID != nil {
		if *p.ProjectID == "" {
			it.ProjectID = nil
		} else {
			it.ProjectID = p.ProjectID
		}
	}
	if p.Priority != nil {
		it.Priority = p.Priority
	}
	if p.Assignee != nil {
		it.Assignee = p.Assignee
	}
	it.UpdatedAt = clock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE action_items
		SET description = ?, completed = ?, project_id = ?, priority = ?, assignee = ?, updated_at = ?
		WHERE id = ?`,
		it.Description, it.Completed, it.ProjectID, it.Priority, it.Assignee, formatTime(it.UpdatedAt), id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return ActionItem{}, fmt.Errorf("updating action item: %w", ErrNotFound)
		}
		return ActionItem{}, fmt.Errorf("updating action item: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return ActionItem{}, err
	}
	return it, nil
}

// CompleteActionItem marks an item done. Completing a done item is a no-op.
func (s *Store) CompleteActionItem(ctx context.Context, id string) (ActionItem, error) {
	done := true
	return s.UpdateActionItem(ctx, id, ActionItemPatch{Completed: &done})
}

func (s *Store) DeleteActionItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting action item: %w", err)
	}
	return checkAffected(res)
}

func scanActionItem(r rowScanner) (ActionItem, error) {
	var it ActionItem
	var noteID, projectID, priority, assignee, category sql.NullString
	var createdAt, updatedAt string
	if err := r.Scan(&it.ID, &noteID, &projectID, &it.Description, &it.Completed,
		&priority, &assignee, &category, &createdAt, &updatedAt); err != nil {
		return ActionItem{}, err
	}
	it.NoteID = nullable(noteID)
	it.ProjectID = nullable(projectID)
	it.Priority = nullable(priority)
	it.Assignee = nullable(assignee)
	it.Category = nullable(category)

	var err error
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return ActionItem{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ActionItem{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return it, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
