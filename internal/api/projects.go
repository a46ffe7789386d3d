package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (r *createProjectRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type createTagRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (r *createTagRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Color = strings.TrimSpace(r.Color)
}

func handleCreateProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if !decodeValid(w, r, &req) {
			return
		}
		p, err := deps.Store.CreateProject(r.Context(), req.Name, req.Description)
		if err != nil {
			storeError(w, err, "project")
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleListProjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := deps.Store.ListProjects(r.Context())
		if err != nil {
			storeError(w, err, "projects")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(ps))
	}
}

func handleGetProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "project")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDeleteProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "project")
			return
		}
		deleted(w)
	}
}

func handleCreateTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTagRequest
		if !decodeValid(w, r, &req) {
			return
		}
		t, err := deps.Store.CreateTag(r.Context(), req.Name, req.Color)
		if err != nil {
			storeError(w, err, "tag")
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleListTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := deps.Store.ListTags(r.Context())
		if err != nil {
			storeError(w, err, "tags")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(tags))
	}
}
