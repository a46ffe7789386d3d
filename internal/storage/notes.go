package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var noteSorts = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title COLLATE NOCASE",
}

const noteColumns = `id, title, content, created_at, updated_at`

func (s *Store) CreateNote(ctx context.Context, title, content string) (Note, error) {
	return insertNote(ctx, s.db, title, content)
}

// CreateNoteWithJob stores a note and a job for it in one transaction, so a
// failed enqueue leaves no note behind. payload builds the job payload from
// the new note's ID.
func (s *Store) CreateNoteWithJob(ctx context.Context, title, content, jobType string, payload func(noteID string) string) (Note, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, "", fmt.Errorf("beginning note transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := insertNote(ctx, tx, title, content)
	if err != nil {
		return Note{}, "", err
	}
	jobID, err := insertJob(ctx, tx, Job{Type: jobType, PayloadJSON: payload(n.ID)})
	if err != nil {
		return Note{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Note{}, "", fmt.Errorf("committing note: %w", err)
	}
	return n, jobID, nil
}

func insertNote(ctx context.Context, ex execer, title, content string) (Note, error) {
	t := clock()
	n := Note{ID: uuid.New().String(), Title: title, Content: content, CreatedAt: t, UpdatedAt: t}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, formatTime(t), formatTime(t),
	)
	if err != nil {
		return Note{}, fmt.Errorf("inserting note: %w", err)
	}
	return n, nil
}

func (s *Store) GetNote(ctx context.Context, id string) (Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

// ListNotes returns notes matching opts.Query in title or content.
// The default order is newest first.
func (s *Store) ListNotes(ctx context.Context, opts ListOptions) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes`
	var args []any
	if opts.Query != "" {
		query += ` WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'`
		pat := likePattern(opts.Query)
		args = append(args, pat, pat)
	}
	query += orderBy(opts.Sort, noteSorts, "created_at DESC, rowid DESC")
	lim, largs := limitOffset(opts)
	query += lim
	args = append(args, largs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Store) UpdateNote(ctx context.Context, id string, p NotePatch) (Note, error) {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	n.UpdatedAt = clock()

	res, err := s.db.ExecContext(ctx, `UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		n.Title, n.Content, formatTime(n.UpdatedAt), id)
	if err != nil {
		return Note{}, fmt.Errorf("updating note: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return Note{}, err
	}
	return n, nil
}

// DeleteNote removes a note together with its action items and tag links.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (Note, error) {
	var n Note
	var createdAt, updatedAt string
	if err := r.Scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt); err != nil {
		return Note{}, err
	}
	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return Note{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Note{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return n, nil
}

// likePattern wraps q for a substring LIKE match, escaping wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
