package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/nota-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler serves public user profiles.
type UserHandler struct {
	service services.UserServiceProvider
	notes   services.NoteServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, notes services.NoteServiceProvider) *UserHandler {
	return &UserHandler{service: service, notes: notes}
}

// GetProfile handles retrieving a user's profile by username.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := h.service.GetProfile(r.Context(), username)
	if err != nil {
		log.Debug().Err(err).Str("username", username).Msg("Profile lookup failed")
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetNotes lists the shared notes of the user with the given username.
func (h *UserHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	q, err := parseNoteQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	page, err := h.notes.FindSharedByAuthor(r.Context(), profile.ID, q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
