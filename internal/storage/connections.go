package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const connectionColumns = `id, sender_id, receiver_id, status, created_at, updated_at`

// CreateConnection records a pending request from sender to receiver.
// A second request for the same pair returns ErrConflict.
func (s *Store) CreateConnection(ctx context.Context, senderID, receiverID string) (Connection, error) {
	t := clock()
	c := Connection{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     StatusPending,
		CreatedAt:  t,
		UpdatedAt:  t,
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO connections (`+connectionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SenderID, c.ReceiverID, c.Status, formatTime(t), formatTime(t))
	if isUniqueViolation(err) {
		return Connection{}, fmt.Errorf("connection %s -> %s: %w", senderID, receiverID, ErrConflict)
	}
	if err != nil {
		return Connection{}, fmt.Errorf("inserting connection: %w", err)
	}
	return c, nil
}

func (s *Store) GetConnection(ctx context.Context, id string) (Connection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	return c, err
}

// SetConnectionStatus changes the status of a connection whose current
// status is from. It returns ErrNotFound if no such connection exists in
// that state.
func (s *Store) SetConnectionStatus(ctx context.Context, id, from, to string) (Connection, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE connections SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, formatTime(clock()), id, from)
	if err != nil {
		return Connection{}, fmt.Errorf("updating connection: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return Connection{}, err
	}
	return s.GetConnection(ctx, id)
}

func (s *Store) ListSentConnections(ctx context.Context, profileID string) ([]Connection, error) {
	return s.queryConnections(ctx, `SELECT `+connectionColumns+` FROM connections
		WHERE sender_id = ? ORDER BY created_at ASC, rowid ASC`, profileID)
}

func (s *Store) ListReceivedConnections(ctx context.Context, profileID string) ([]Connection, error) {
	return s.queryConnections(ctx, `SELECT `+connectionColumns+` FROM connections
		WHERE receiver_id = ? ORDER BY created_at ASC, rowid ASC`, profileID)
}

// ListAcceptedConnections returns accepted connections in either direction.
func (s *Store) ListAcceptedConnections(ctx context.Context, profileID string) ([]Connection, error) {
	return s.queryConnections(ctx, `SELECT `+connectionColumns+` FROM connections
		WHERE status = ? AND (sender_id = ? OR receiver_id = ?)
		ORDER BY updated_at ASC, rowid ASC`, StatusAccepted, profileID, profileID)
}

func (s *Store) queryConnections(ctx context.Context, query string, args ...any) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	conns := []Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func scanConnection(r rowScanner) (Connection, error) {
	var c Connection
	var createdAt, updatedAt string
	if err := r.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &createdAt, &updatedAt); err != nil {
		return Connection{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return Connection{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Connection{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, nil
}
