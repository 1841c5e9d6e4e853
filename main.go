package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/nota-be/internal/api"
	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/config"
	"github.com/isdelr/nota-be/internal/database"
	"github.com/isdelr/nota-be/internal/logger"
	"github.com/isdelr/nota-be/internal/scheduler"
	"github.com/isdelr/nota-be/internal/services"
	"github.com/isdelr/nota-be/internal/store"
	"github.com/isdelr/nota-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up stores and services
	userStore := store.NewUserStore(db)
	blacklist := store.NewTokenBlacklist(db, cfg.TokenTTL)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	authService := services.NewAuthService(userStore, blacklist, tokens, hub, cfg.BcryptCost)
	noteService := services.NewNoteService(store.NewNoteStore(db), hub)
	userService := services.NewUserService(userStore)

	// Set up and run the background scheduler
	sched, err := scheduler.NewScheduler(cfg.PurgeSchedule, blacklist)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	sched.Start()

	// Set up router
	router := api.NewRouter(api.Deps{
		AuthService:    authService,
		NoteService:    noteService,
		UserService:    userService,
		Hub:            hub,
		DB:             db,
		AllowedOrigins: cfg.FrontendURLs,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sched.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
