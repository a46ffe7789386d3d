package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) CreateTag(ctx context.Context, name, color string) (Tag, error) {
	t := Tag{ID: uuid.New().String(), Name: name, Color: color}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags (id, name, color) VALUES (?, ?, ?)`, t.ID, t.Name, t.Color)
	if isUniqueViolation(err) {
		return Tag{}, fmt.Errorf("tag %q: %w", name, ErrConflict)
	}
	if err != nil {
		return Tag{}, fmt.Errorf("inserting tag: %w", err)
	}
	return t, nil
}

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	return s.queryTags(ctx, `SELECT id, name, color FROM tags ORDER BY name COLLATE NOCASE`)
}

// TagsForNote returns the tags attached to a note, by name.
func (s *Store) TagsForNote(ctx context.Context, noteID string) ([]Tag, error) {
	return s.queryTags(ctx, `
		SELECT t.id, t.name, t.color FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		WHERE nt.note_id = ?
		ORDER BY t.name COLLATE NOCASE`, noteID)
}

// AttachTag links a tag to a note. Attaching twice is a no-op.
func (s *Store) AttachTag(ctx context.Context, noteID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`, noteID, tagID)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return ErrNotFound
		}
		return fmt.Errorf("attaching tag: %w", err)
	}
	return nil
}

func (s *Store) DetachTag(ctx context.Context, noteID, tagID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?`, noteID, tagID)
	if err != nil {
		return fmt.Errorf("detaching tag: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) queryTags(ctx context.Context, query string, args ...any) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
