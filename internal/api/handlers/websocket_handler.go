package handlers

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/services"
	ws "github.com/isdelr/nota-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections to the live note feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	auth     services.AuthServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser upgrades are
// only accepted from allowedOrigins.
func NewWebSocketHandler(hub *ws.Hub, authService services.AuthServiceProvider, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		auth: authService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve handles the WebSocket connection request. Browsers cannot set headers
// on an upgrade, so the token may also arrive in the "token" query parameter.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	var session ws.Session
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		session = ws.Session{UserID: id.UserID, Token: auth.TokenFromContext(r.Context()), ExpiresAt: id.ExpiresAt}
	} else if token := r.URL.Query().Get("token"); token != "" {
		id, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		session = ws.Session{UserID: id.UserID, Token: token, ExpiresAt: id.ExpiresAt}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, session)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
