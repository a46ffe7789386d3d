package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/followup/internal/storage"
)

type createItemRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	NoteID      *string `json:"note_id" validate:"omitempty,min=1"`
	ProjectID   *string `json:"project_id" validate:"omitempty,min=1"`
	Priority    *string `json:"priority" validate:"omitempty,max=20"`
	Assignee    *string `json:"assignee" validate:"omitempty,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
}

func (r *createItemRequest) trim() {
	r.Description = strings.TrimSpace(r.Description)
	trimPtr(r.NoteID)
	trimPtr(r.ProjectID)
	trimPtr(r.Priority)
	trimPtr(r.Assignee)
	trimPtr(r.Category)
}

func (r *createItemRequest) item() storage.ActionItem {
	return storage.ActionItem{
		Description: r.Description,
		NoteID:      r.NoteID,
		ProjectID:   r.ProjectID,
		Priority:    r.Priority,
		Assignee:    r.Assignee,
		Category:    r.Category,
	}
}

type bulkItemsRequest struct {
	Items []createItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

func (r *bulkItemsRequest) trim() {
	for i := range r.Items {
		r.Items[i].trim()
	}
}

type patchItemRequest struct {
	Description *string `json:"description" validate:"omitempty,min=1,max=500"`
	Completed   *bool   `json:"completed"`
	ProjectID   *string `json:"project_id"`
	Priority    *string `json:"priority" validate:"omitempty,max=20"`
	Assignee    *string `json:"assignee" validate:"omitempty,max=100"`
}

func (r *patchItemRequest) trim() {
	trimPtr(r.Description)
	trimPtr(r.ProjectID)
	trimPtr(r.Priority)
	trimPtr(r.Assignee)
}

func handleListItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f storage.ActionItemFilter
		if s := q.Get("completed"); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				badRequest(w, "completed must be true or false")
				return
			}
			f.Completed = &b
		}
		if s := q.Get("note_id"); s != "" {
			f.NoteID = &s
		}
		if s := q.Get("project_id"); s != "" {
			f.ProjectID = &s
		}

		items, err := deps.Store.ListActionItems(r.Context(), f, listOptions(r))
		if err != nil {
			storeError(w, err, "action items")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(items))
	}
}

func handleCreateItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if !decodeValid(w, r, &req) {
			return
		}
		it, err := deps.Store.CreateActionItem(r.Context(), req.item())
		if err != nil {
			storeError(w, err, "note or project")
			return
		}
		writeJSON(w, http.StatusCreated, it)
	}
}

func handleBulkCreateItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkItemsRequest
		if !decodeValid(w, r, &req) {
			return
		}
		items := make([]storage.ActionItem, len(req.Items))
		for i := range req.Items {
			items[i] = req.Items[i].item()
		}
		created, err := deps.Store.CreateActionItems(r.Context(), items)
		if err != nil {
			storeError(w, err, "note or project")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := deps.Store.GetActionItem(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "action item")
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handlePatchItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchItemRequest
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Description == nil && req.Completed == nil && req.ProjectID == nil &&
			req.Priority == nil && req.Assignee == nil {
			badRequest(w, "at least one field is required")
			return
		}
		it, err := deps.Store.UpdateActionItem(r.Context(), chi.URLParam(r, "id"), storage.ActionItemPatch{
			Description: req.Description,
			Completed:   req.Completed,
			ProjectID:   req.ProjectID,
			Priority:    req.Priority,
			Assignee:    req.Assignee,
		})
		if err != nil {
			storeError(w, err, "action item")
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleCompleteItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := deps.Store.CompleteActionItem(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "action item")
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleDeleteItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteActionItem(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "action item")
			return
		}
		deleted(w)
	}
}
