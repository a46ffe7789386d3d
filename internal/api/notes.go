package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/followup/internal/ingest"
	"github.com/kalambet/followup/internal/storage"
)

type createNoteRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=2000"`
}

func (r *createNoteRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
}

type patchNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content" validate:"omitempty,min=1,max=2000"`
}

func (r *patchNoteRequest) trim() {
	trimPtr(r.Title)
	trimPtr(r.Content)
}

type importNoteRequest struct {
	Type    string `json:"type" validate:"required,oneof=text url pdf"`
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content"`
	URL     string `json:"url" validate:"omitempty,url"`
	Extract bool   `json:"extract"`
}

func (r *importNoteRequest) trim() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Title = strings.TrimSpace(r.Title)
	r.URL = strings.TrimSpace(r.URL)
}

type noteResponse struct {
	storage.Note
	JobID string `json:"job_id,omitempty"`
}

type noteDetail struct {
	storage.Note
	Tags        []storage.Tag        `json:"tags"`
	ActionItems []storage.ActionItem `json:"action_items"`
}

func handleCreateNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createNoteRequest
		if !decodeValid(w, r, &req) {
			return
		}
		saveNote(w, r, deps, req.Title, req.Content, r.URL.Query().Get("extract") == "true")
	}
}

// saveNote stores a note and, when asked, queues background extraction in
// the same transaction.
func saveNote(w http.ResponseWriter, r *http.Request, deps Deps, title, content string, queue bool) {
	if !queue {
		n, err := deps.Store.CreateNote(r.Context(), title, content)
		if err != nil {
			storeError(w, err, "note")
			return
		}
		writeJSON(w, http.StatusCreated, noteResponse{Note: n})
		return
	}

	n, jobID, err := deps.Store.CreateNoteWithJob(r.Context(), title, content,
		storage.JobExtractActionItems, ingest.EncodePayload)
	if err != nil {
		storeError(w, err, "note")
		return
	}
	writeJSON(w, http.StatusCreated, noteResponse{Note: n, JobID: jobID})
}

func handleListNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notes, err := deps.Store.ListNotes(r.Context(), listOptions(r))
		if err != nil {
			storeError(w, err, "notes")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(notes))
	}
}

func handleGetNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		n, err := deps.Store.GetNote(r.Context(), id)
		if err != nil {
			storeError(w, err, "note")
			return
		}
		tags, err := deps.Store.TagsForNote(r.Context(), id)
		if err != nil {
			storeError(w, err, "note")
			return
		}
		items, err := deps.Store.ListActionItems(r.Context(), storage.ActionItemFilter{NoteID: &id}, storage.ListOptions{})
		if err != nil {
			storeError(w, err, "note")
			return
		}
		writeJSON(w, http.StatusOK, noteDetail{Note: n, Tags: orEmpty(tags), ActionItems: orEmpty(items)})
	}
}

func handlePatchNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchNoteRequest
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Title == nil && req.Content == nil {
			badRequest(w, "at least one of title or content is required")
			return
		}
		n, err := deps.Store.UpdateNote(r.Context(), chi.URLParam(r, "id"), storage.NotePatch{
			Title:   req.Title,
			Content: req.Content,
		})
		if err != nil {
			storeError(w, err, "note")
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func handleDeleteNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "note")
			return
		}
		deleted(w)
	}
}

func handleExtractNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := ingest.ExtractNote(r.Context(), deps.Store, deps.Extractor, chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "note")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleImportNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importNoteRequest
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Type == "url" && req.URL == "" {
			badRequest(w, "url is required for url imports")
			return
		}
		if req.Type != "url" && strings.TrimSpace(req.Content) == "" {
			badRequest(w, "content is required for %s imports", req.Type)
			return
		}

		var content string
		var err error
		switch req.Type {
		case "url":
			content, err = ingest.FetchURL(r.Context(), deps.HTTPClient, req.URL)
			if errors.Is(err, ingest.ErrTooLarge) {
				badRequest(w, "%v", err)
				return
			}
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
				return
			}
			if req.Title == "" {
				req.Title = req.URL
			}
		case "pdf":
			data, decErr := base64.StdEncoding.DecodeString(req.Content)
			if decErr != nil {
				badRequest(w, "invalid base64 content")
				return
			}
			content, err = ingest.FromPDF(data)
			if err != nil {
				badRequest(w, "%v", err)
				return
			}
			if req.Title == "" {
				req.Title = "Imported PDF"
			}
		default:
			content = strings.TrimSpace(req.Content)
			if req.Title == "" {
				req.Title = firstLine(content)
			}
		}

		if content == "" {
			badRequest(w, "imported document has no text")
			return
		}
		saveNote(w, r, deps, req.Title, content, req.Extract)
	}
}

// firstLine returns the first non-empty line of s, cut to a title's length.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			if r := []rune(line); len(r) > 200 {
				line = string(r[:200])
			}
			return line
		}
	}
	return "Imported note"
}

type extractRequest struct {
	Text     string `json:"text" validate:"required"`
	Detailed bool   `json:"detailed"`
}

func (r *extractRequest) trim() { r.Text = strings.TrimSpace(r.Text) }

func handleExtract(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Detailed {
			writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(deps.Extractor.ExtractDetailed(r.Context(), req.Text))})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(deps.Extractor.Extract(r.Context(), req.Text))})
	}
}

func handleAttachTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.AttachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
		if err != nil {
			storeError(w, err, "note or tag")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "attached"})
	}
}

func handleDetachTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DetachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "tag is not attached to this note")
			return
		}
		if err != nil {
			storeError(w, err, "tag")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "detached"})
	}
}
