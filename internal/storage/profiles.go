package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const profileColumns = `id, name, bio, city, neighborhood, availability, created_at, updated_at`

// CreateProfile stores p with its interests and activities.
func (s *Store) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	t := clock()
	p.ID = uuid.New().String()
	p.CreatedAt, p.UpdatedAt = t, t
	if p.Availability == nil {
		p.Availability = []string{}
	}
	avail, err := json.Marshal(p.Availability)
	if err != nil {
		return Profile{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Bio, p.City, p.Neighborhood, string(avail), formatTime(t), formatTime(t),
	); err != nil {
		return Profile{}, fmt.Errorf("inserting profile: %w", err)
	}
	if err := replaceTags(ctx, tx, "profile_interests", p.ID, p.Interests); err != nil {
		return Profile{}, err
	}
	if err := replaceTags(ctx, tx, "profile_activities", p.ID, p.Activities); err != nil {
		return Profile{}, err
	}
	if err := tx.Commit(); err != nil {
		return Profile{}, fmt.Errorf("committing profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *Store) GetProfile(ctx context.Context, id string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if err := s.loadTags(ctx, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ListProfiles returns profiles matching f in creation order.
func (s *Store) ListProfiles(ctx context.Context, f ProfileFilter) ([]Profile, error) {
	var where []string
	var args []any
	if f.City != "" {
		where = append(where, "city = ?")
		args = append(args, f.City)
	}
	if f.Neighborhood != "" {
		where = append(where, "neighborhood = ?")
		args = append(args, f.Neighborhood)
	}
	if f.Interest != "" {
		where = append(where, "EXISTS (SELECT 1 FROM profile_interests pi WHERE pi.profile_id = profiles.id AND pi.name = ?)")
		args = append(args, f.Interest)
	}
	if f.Activity != "" {
		where = append(where, "EXISTS (SELECT 1 FROM profile_activities pa WHERE pa.profile_id = profiles.id AND pa.name = ?)")
		args = append(args, f.Activity)
	}
	if f.Availability != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(profiles.availability) WHERE value = ?)")
		args = append(args, f.Availability)
	}

	query := `SELECT ` + profileColumns + ` FROM profiles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	profiles, err := s.queryProfiles(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if err := s.loadTags(ctx, &profiles[i]); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// UpdateProfile applies p. Tag sets in p replace the stored ones.
func (s *Store) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (Profile, error) {
	cur, err := s.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Bio != nil {
		cur.Bio = *p.Bio
	}
	if p.City != nil {
		cur.City = *p.City
	}
	if p.Neighborhood != nil {
		cur.Neighborhood = *p.Neighborhood
	}
	if p.Availability != nil {
		cur.Availability = p.Availability
	}
	avail, err := json.Marshal(cur.Availability)
	if err != nil {
		return Profile{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles SET name = ?, bio = ?, city = ?, neighborhood = ?, availability = ?, updated_at = ?
		WHERE id = ?`,
		cur.Name, cur.Bio, cur.City, cur.Neighborhood, string(avail), formatTime(clock()), id,
	); err != nil {
		return Profile{}, fmt.Errorf("updating profile: %w", err)
	}
	if p.Interests != nil {
		if err := replaceTags(ctx, tx, "profile_interests", id, p.Interests); err != nil {
			return Profile{}, err
		}
	}
	if p.Activities != nil {
		if err := replaceTags(ctx, tx, "profile_activities", id, p.Activities); err != nil {
			return Profile{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Profile{}, fmt.Errorf("committing profile: %w", err)
	}
	return s.GetProfile(ctx, id)
}

// DeleteProfile removes a profile with its tags and connections.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return checkAffected(res)
}

// replaceTags rewrites the rows of a profile tag table. table is one of the
// two fixed join table names.
func replaceTags(ctx context.Context, tx *sql.Tx, table, profileID string, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO `+table+` (profile_id, name) VALUES (?, ?)`, profileID, n); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) loadTags(ctx context.Context, p *Profile) error {
	var err error
	if p.Interests, err = s.tagNames(ctx, "profile_interests", p.ID); err != nil {
		return err
	}
	p.Activities, err = s.tagNames(ctx, "profile_activities", p.ID)
	return err
}

func (s *Store) tagNames(ctx context.Context, table, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM `+table+` WHERE profile_id = ? ORDER BY name`, profileID)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// queryProfiles drains rows before returning; the store runs on a single
// connection, so tag lookups must not overlap an open result set.
func (s *Store) queryProfiles(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(r rowScanner) (Profile, error) {
	var p Profile
	var avail, createdAt, updatedAt string
	if err := r.Scan(&p.ID, &p.Name, &p.Bio, &p.City, &p.Neighborhood, &avail, &createdAt, &updatedAt); err != nil {
		return Profile{}, err
	}
	if err := json.Unmarshal([]byte(avail), &p.Availability); err != nil {
		return Profile{}, fmt.Errorf("parsing availability: %w", err)
	}
	if p.Availability == nil {
		p.Availability = []string{}
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Profile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Profile{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}
