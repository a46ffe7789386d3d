package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/followup/internal/storage"
)

type profileRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Bio          string   `json:"bio" validate:"max=500"`
	City         string   `json:"city" validate:"max=100"`
	Neighborhood string   `json:"neighborhood" validate:"max=100"`
	Availability []string `json:"availability" validate:"dive,required,max=50"`
	Interests    []string `json:"interests" validate:"dive,required,max=50"`
	Activities   []string `json:"activities" validate:"dive,required,max=50"`
}

func (r *profileRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Bio = strings.TrimSpace(r.Bio)
	r.City = strings.TrimSpace(r.City)
	r.Neighborhood = strings.TrimSpace(r.Neighborhood)
	trimAll(r.Availability)
	trimAll(r.Interests)
	trimAll(r.Activities)
}

type updateProfileRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Bio          *string  `json:"bio" validate:"omitempty,max=500"`
	City         *string  `json:"city" validate:"omitempty,max=100"`
	Neighborhood *string  `json:"neighborhood" validate:"omitempty,max=100"`
	Availability []string `json:"availability" validate:"omitempty,dive,required,max=50"`
	Interests    []string `json:"interests" validate:"omitempty,dive,required,max=50"`
	Activities   []string `json:"activities" validate:"omitempty,dive,required,max=50"`
}

func (r *updateProfileRequest) trim() {
	trimPtr(r.Name)
	trimPtr(r.Bio)
	trimPtr(r.City)
	trimPtr(r.Neighborhood)
	trimAll(r.Availability)
	trimAll(r.Interests)
	trimAll(r.Activities)
}

func (r *updateProfileRequest) empty() bool {
	return r.Name == nil && r.Bio == nil && r.City == nil && r.Neighborhood == nil &&
		r.Availability == nil && r.Interests == nil && r.Activities == nil
}

type connectRequest struct {
	SenderID   string `json:"sender_id" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
}

func (r *connectRequest) trim() {
	r.SenderID = strings.TrimSpace(r.SenderID)
	r.ReceiverID = strings.TrimSpace(r.ReceiverID)
}

type respondRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

func (r *respondRequest) trim() { r.Status = strings.ToLower(strings.TrimSpace(r.Status)) }

func handleCreateProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decodeValid(w, r, &req) {
			return
		}
		p, err := deps.Store.CreateProfile(r.Context(), storage.Profile{
			Name:         req.Name,
			Bio:          req.Bio,
			City:         req.City,
			Neighborhood: req.Neighborhood,
			Availability: req.Availability,
			Interests:    req.Interests,
			Activities:   req.Activities,
		})
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleListProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ps, err := deps.Store.ListProfiles(r.Context(), storage.ProfileFilter{
			City:         strings.TrimSpace(q.Get("city")),
			Neighborhood: strings.TrimSpace(q.Get("neighborhood")),
			Interest:     strings.TrimSpace(q.Get("interest")),
			Activity:     strings.TrimSpace(q.Get("activity")),
			Availability: strings.TrimSpace(q.Get("availability")),
		})
		if err != nil {
			storeError(w, err, "profiles")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(ps))
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetProfile(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleUpdateProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if !decodeValid(w, r, &req) {
			return
		}
		if req.empty() {
			badRequest(w, "at least one field is required")
			return
		}
		p, err := deps.Store.UpdateProfile(r.Context(), chi.URLParam(r, "id"), storage.ProfilePatch{
			Name:         req.Name,
			Bio:          req.Bio,
			City:         req.City,
			Neighborhood: req.Neighborhood,
			Availability: req.Availability,
			Interests:    req.Interests,
			Activities:   req.Activities,
		})
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDeleteProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "profile")
			return
		}
		deleted(w)
	}
}

func handleMatches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := deps.Friends.Matches(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		if limit := parseIntParam(r, "limit", 0, 0); limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}
		writeJSON(w, http.StatusOK, orEmpty(matches))
	}
}

func handleConnect(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if !decodeValid(w, r, &req) {
			return
		}
		c, err := deps.Friends.Connect(r.Context(), req.SenderID, req.ReceiverID)
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleRespond(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if !decodeValid(w, r, &req) {
			return
		}
		c, err := deps.Friends.Respond(r.Context(), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			storeError(w, err, "connection")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleSentConnections(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := deps.Store.ListSentConnections(r.Context(), chi.URLParam(r, "profileID"))
		if err != nil {
			storeError(w, err, "connections")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(cs))
	}
}

func handleReceivedConnections(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := deps.Store.ListReceivedConnections(r.Context(), chi.URLParam(r, "profileID"))
		if err != nil {
			storeError(w, err, "connections")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(cs))
	}
}

func handleFriends(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := deps.Friends.Friends(r.Context(), chi.URLParam(r, "profileID"))
		if err != nil {
			storeError(w, err, "profile")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(ps))
	}
}
