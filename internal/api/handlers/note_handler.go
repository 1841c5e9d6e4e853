package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/nota-be/internal/apperrors"
	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/models"
	"github.com/isdelr/nota-be/internal/services"
)

// NoteHandler handles HTTP requests for notes.
type NoteHandler struct {
	service services.NoteServiceProvider
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(service services.NoteServiceProvider) *NoteHandler {
	return &NoteHandler{service: service}
}

// CreateNotePayload defines the structure for note creation requests.
type CreateNotePayload struct {
	Title      string            `json:"title" validate:"required,max=100"`
	Content    string            `json:"content" validate:"required,max=1000"`
	Visibility models.Visibility `json:"visibility" validate:"omitempty,oneof=public member"`
}

// UpdateNotePayload defines the structure for partial note updates. Absent
// fields are left unchanged; present ones follow the creation rules.
type UpdateNotePayload struct {
	Title      *string            `json:"title" validate:"omitnil,min=1,max=100"`
	Content    *string            `json:"content" validate:"omitnil,min=1,max=1000"`
	Visibility *models.Visibility `json:"visibility" validate:"omitnil,oneof=public member"`
}

type noteQueryParams struct {
	Search     string `query:"search"`
	Page       *int   `query:"page" validate:"omitnil,min=1"`
	Limit      *int   `query:"limit" validate:"omitnil,min=1,max=100"`
	Visibility string `query:"visibility" validate:"omitempty,oneof=public member"`
}

// parseNoteQuery reads search, page, limit and visibility from the URL query.
// Absent page and limit fall back to the service defaults.
func parseNoteQuery(r *http.Request) (services.NoteQuery, error) {
	values := r.URL.Query()
	params := noteQueryParams{
		Search:     values.Get("search"),
		Visibility: values.Get("visibility"),
	}

	var bad []string
	for _, p := range []struct {
		name string
		dst  **int
	}{{"page", &params.Page}, {"limit", &params.Limit}} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			bad = append(bad, p.name+" must be an integer number")
			continue
		}
		*p.dst = &n
	}
	if len(bad) > 0 {
		return services.NoteQuery{}, apperrors.Validation(bad...)
	}
	if err := validateStruct(params); err != nil {
		return services.NoteQuery{}, err
	}

	q := services.NoteQuery{Search: params.Search, Visibility: models.Visibility(params.Visibility)}
	if params.Page != nil {
		q.Page = *params.Page
	}
	if params.Limit != nil {
		q.Limit = *params.Limit
	}
	return q, nil
}

func callerFrom(r *http.Request) *auth.Identity {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// Create handles creating a note owned by the caller.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload CreateNotePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validateStruct(payload); err != nil {
		WriteError(w, r, err)
		return
	}

	note, err := h.service.Create(r.Context(), caller.UserID, services.CreateNoteInput{
		Title:      payload.Title,
		Content:    payload.Content,
		Visibility: payload.Visibility,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetAll lists the feed visible to the caller.
func (h *NoteHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q, err := parseNoteQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page, err := h.service.FindAll(r.Context(), callerFrom(r), q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles retrieving a single note.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.FindOne(r.Context(), chi.URLParam(r, "id"), callerFrom(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Update handles a partial update by the note's author.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload UpdateNotePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validateStruct(payload); err != nil {
		WriteError(w, r, err)
		return
	}

	note, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), models.NotePatch{
		Title:      payload.Title,
		Content:    payload.Content,
		Visibility: payload.Visibility,
	}, caller.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Delete handles removal by the note's author.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id"), caller.UserID); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}
