package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/nota-be/internal/api/handlers"
	"github.com/isdelr/nota-be/internal/services"
	"github.com/isdelr/nota-be/internal/websocket"
)

// Deps groups what the router needs to build its handlers.
type Deps struct {
	AuthService    services.AuthServiceProvider
	NoteService    services.NoteServiceProvider
	UserService    services.UserServiceProvider
	Hub            *websocket.Hub
	DB             handlers.Pinger
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.AuthService, d.NoteService)
	noteHandler := handlers.NewNoteHandler(d.NoteService)
	userHandler := handlers.NewUserHandler(d.UserService, d.NoteService)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.AuthService, d.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(d.DB)

	requireAuth := RequireAuth(d.AuthService)
	optionalAuth := OptionalAuth(d.AuthService)

	r.Get("/healthz", healthHandler.Check)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
			r.Get("/profile/notes", authHandler.ProfileNotes)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/notes", func(r chi.Router) {
		r.With(requireAuth).Post("/", noteHandler.Create)
		r.With(optionalAuth).Get("/", noteHandler.GetAll)
		r.With(optionalAuth).Get("/stream", wsHandler.Serve)

		r.Route("/{id}", func(r chi.Router) {
			r.With(optionalAuth).Get("/", noteHandler.Get)
			r.With(requireAuth).Patch("/", noteHandler.Update)
			r.With(requireAuth).Delete("/", noteHandler.Delete)
		})
	})

	r.Route("/users/profile/{username}", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", userHandler.GetProfile)
		r.Get("/notes", userHandler.GetNotes)
	})

	return r
}
