// Package ingest turns stored notes into action items in the background and
// converts imported documents to plain text.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/followup/internal/extract"
	"github.com/kalambet/followup/internal/storage"
)

// JobStore abstracts the job queue and the note/item operations a job needs.
type JobStore interface {
	ItemStore
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
}

// Worker processes extract_action_items jobs from the SQLite job queue.
type Worker struct {
	store     JobStore
	extractor extract.Service
	poll      time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, extractor extract.Service, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:     store,
		extractor: extractor,
		poll:      pollInterval,
		logger:    slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single extract_action_items job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, []string{storage.JobExtractActionItems})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	n, err := w.processJob(ctx, job)
	if errors.Is(err, storage.ErrNotFound) {
		// The note was deleted after the job was queued; retrying cannot help.
		w.logger.Warn("note gone, dropping job", "job_id", job.ID, "error", err)
		if err := w.store.CompleteJob(ctx, job.ID); err != nil {
			return true, fmt.Errorf("completing job %s: %w", job.ID, err)
		}
		return true, nil
	}
	if err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	w.logger.Info("extracted action items", "job_id", job.ID, "items", n)
	return true, nil
}

// ExtractPayload is the payload of an extract_action_items job.
type ExtractPayload struct {
	NoteID string `json:"note_id"`
}

// EncodePayload renders the job payload for noteID.
func EncodePayload(noteID string) string {
	b, _ := json.Marshal(ExtractPayload{NoteID: noteID})
	return string(b)
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) (int, error) {
	var payload ExtractPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return 0, fmt.Errorf("parsing payload: %w", err)
	}
	if payload.NoteID == "" {
		return 0, fmt.Errorf("payload has no note_id")
	}

	items, err := ExtractNote(ctx, w.store, w.extractor, payload.NoteID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// ItemStore is the subset of storage used by ExtractNote.
type ItemStore interface {
	GetNote(ctx context.Context, id string) (storage.Note, error)
	ListActionItems(ctx context.Context, f storage.ActionItemFilter, opts storage.ListOptions) ([]storage.ActionItem, error)
	CreateActionItems(ctx context.Context, items []storage.ActionItem) ([]storage.ActionItem, error)
}

// ExtractNote runs the extractor over a stored note and saves the items it
// finds, linked to the note. Items whose description the note already has
// (ignoring case) are skipped, so extracting twice adds nothing. It returns
// the newly created items.
func ExtractNote(ctx context.Context, store ItemStore, ex extract.Service, noteID string) ([]storage.ActionItem, error) {
	note, err := store.GetNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("loading note %s: %w", noteID, err)
	}
	existing, err := store.ListActionItems(ctx, storage.ActionItemFilter{NoteID: &noteID}, storage.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing items for note %s: %w", noteID, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[strings.ToLower(it.Description)] = true
	}

	var fresh []storage.ActionItem
	for _, it := range ToActionItems(&note.ID, ex.ExtractDetailed(ctx, note.Content)) {
		if seen[strings.ToLower(it.Description)] {
			continue
		}
		fresh = append(fresh, it)
	}
	if len(fresh) == 0 {
		return []storage.ActionItem{}, nil
	}
	created, err := store.CreateActionItems(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("saving action items: %w", err)
	}
	return created, nil
}

// ToActionItems maps extracted items to unsaved action items.
func ToActionItems(noteID *string, items []extract.Item) []storage.ActionItem {
	out := make([]storage.ActionItem, len(items))
	for i, it := range items {
		out[i] = storage.ActionItem{
			NoteID:      noteID,
			Description: it.Text,
			Priority:    it.Priority,
			Assignee:    it.Assignee,
			Category:    it.Category,
		}
	}
	return out
}
