// Package api exposes notes, action items and friend matching over HTTP and
// MCP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/followup/internal/extract"
	"github.com/kalambet/followup/internal/friends"
	"github.com/kalambet/followup/internal/storage"
)

// Deps holds what the HTTP handlers need.
type Deps struct {
	Store      *storage.Store
	Friends    *friends.Service
	Extractor  extract.Service
	Token      string
	HTTPClient *http.Client // used by URL imports; nil uses a 30s-timeout client
}

// NewHandler returns the REST API. /health is open; every other route needs
// the bearer token.
func NewHandler(deps Deps) http.Handler {
	if deps.Friends == nil {
		deps.Friends = friends.NewService(deps.Store)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.Heuristic(nil)
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/extract", handleExtract(deps))

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", handleCreateNote(deps))
			r.Get("/", handleListNotes(deps))
			r.Post("/import", handleImportNote(deps))
			r.Get("/{id}", handleGetNote(deps))
			r.Patch("/{id}", handlePatchNote(deps))
			r.Delete("/{id}", handleDeleteNote(deps))
			r.Post("/{id}/extract", handleExtractNote(deps))
			r.Post("/{id}/tags/{tagID}", handleAttachTag(deps))
			r.Delete("/{id}/tags/{tagID}", handleDetachTag(deps))
		})

		r.Route("/action-items", func(r chi.Router) {
			r.Get("/", handleListItems(deps))
			r.Post("/", handleCreateItem(deps))
			r.Post("/bulk", handleBulkCreateItems(deps))
			r.Get("/{id}", handleGetItem(deps))
			r.Patch("/{id}", handlePatchItem(deps))
			r.Delete("/{id}", handleDeleteItem(deps))
			r.Put("/{id}/complete", handleCompleteItem(deps))
		})

		r.Post("/projects", handleCreateProject(deps))
		r.Get("/projects", handleListProjects(deps))
		r.Get("/projects/{id}", handleGetProject(deps))
		r.Delete("/projects/{id}", handleDeleteProject(deps))
		r.Post("/tags", handleCreateTag(deps))
		r.Get("/tags", handleListTags(deps))

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", handleCreateProfile(deps))
			r.Get("/", handleListProfiles(deps))
			r.Get("/{id}", handleGetProfile(deps))
			r.Put("/{id}", handleUpdateProfile(deps))
			r.Delete("/{id}", handleDeleteProfile(deps))
			r.Get("/{id}/matches", handleMatches(deps))
		})

		r.Route("/connections", func(r chi.Router) {
			r.Post("/", handleConnect(deps))
			r.Put("/{id}", handleRespond(deps))
			r.Get("/sent/{profileID}", handleSentConnections(deps))
			r.Get("/received/{profileID}", handleReceivedConnections(deps))
			r.Get("/friends/{profileID}", handleFriends(deps))
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func deleted(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
