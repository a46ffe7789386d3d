package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotePatch holds the note fields to change. Nil fields are left alone.
type NotePatch struct {
	Title   *string
	Content *string
}

type ActionItem struct {
	ID          string    `json:"id"`
	NoteID      *string   `json:"note_id"`
	ProjectID   *string   `json:"project_id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    *string   `json:"priority,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	Category    *string   `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActionItemPatch holds the action item fields to change. Nil fields are left alone.
type ActionItemPatch struct {
	Description *string
	Completed   *bool
	ProjectID   *string
	Priority    *string
	Assignee    *string
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	City         string    `json:"city"`
	Neighborhood string    `json:"neighborhood"`
	Availability []string  `json:"availability"`
	Interests    []string  `json:"interests"`
	Activities   []string  `json:"activities"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfilePatch holds the profile fields to change. A non-nil slice replaces
// the stored set, including with an empty set.
type ProfilePatch struct {
	Name         *string
	Bio          *string
	City         *string
	Neighborhood *string
	Availability []string
	Interests    []string
	Activities   []string
}

// ProfileFilter narrows ListProfiles. Empty fields match everything.
type ProfileFilter struct {
	City         string
	Neighborhood string
	Interest     string
	Activity     string
	Availability string
}

// Connection statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

type Connection struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// ListOptions controls search, ordering and pagination of list queries.
// Sort names a column, with a leading "-" for descending order.
type ListOptions struct {
	Query  string
	Sort   string
	Offset int
	Limit  int
}

// ActionItemFilter narrows ListActionItems. Nil fields match everything.
type ActionItemFilter struct {
	Completed *bool
	NoteID    *string
	ProjectID *string
}
