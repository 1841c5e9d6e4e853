package handlers

import (
	"net/http"

	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and the caller's own account.
type AuthHandler struct {
	service services.AuthServiceProvider
	notes   services.NoteServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, notes services.NoteServiceProvider) *AuthHandler {
	return &AuthHandler{service: service, notes: notes}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username" validate:"required,nowhitespace"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginPayload defines the structure for login requests. Username may hold an email.
type LoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordPayload defines the structure for password change requests.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validateStruct(payload); err != nil {
		WriteError(w, r, err)
		return
	}

	userID, err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterResponse{Message: "User registered successfully", UserID: userID})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validateStruct(payload); err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token})
}

// Logout revokes the token the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), auth.TokenFromContext(r.Context())); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Profile returns the identity carried by the caller's token.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve identity from context")
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// ProfileNotes lists every note owned by the caller.
func (h *AuthHandler) ProfileNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	q, err := parseNoteQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	page, err := h.notes.FindAllByAuthor(r.Context(), id.UserID, q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ChangePassword handles changing the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload ChangePasswordPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validateStruct(payload); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), id.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
