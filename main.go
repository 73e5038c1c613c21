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

	"github.com/isdelr/goodcontent-auth/internal/api"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/config"
	"github.com/isdelr/goodcontent-auth/internal/database"
	"github.com/isdelr/goodcontent-auth/internal/graph"
	"github.com/isdelr/goodcontent-auth/internal/jobs"
	"github.com/isdelr/goodcontent-auth/internal/logger"
	"github.com/isdelr/goodcontent-auth/internal/services"
	"github.com/isdelr/goodcontent-auth/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	ctx := context.Background()
	dialect := database.Dialect(cfg.DatabaseDriver)
	db, err := database.New(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dialect, logger.Goose{}); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	if cfg.InviteSecret == "" {
		log.Warn().Msg("INVITE_SECRET is empty; every signup will be rejected")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db, dialect)
	eventService := services.NewEventService(db, dialect, hub)
	authService := services.NewAuthService(
		userService,
		eventService,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewTokenManager(cfg.JWTSecret, auth.SessionTTL),
		cfg.InviteSecret,
	)

	schema, err := graph.NewSchema(graph.NewResolver(authService, graph.Options{
		SecureCookies: cfg.IsProduction(),
		AdminKey:      cfg.AdminAPIKey,
	}))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build GraphQL schema")
	}

	// Set up and run the background retention job
	pruner := jobs.NewPruner(eventService, cfg.EventRetention)
	if err := pruner.Start(cfg.EventPruneSchedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to start event retention job")
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Schema:         schema,
		Auth:           authService,
		Events:         eventService,
		Hub:            hub,
		SecureCookies:  cfg.IsProduction(),
		AdminKey:       cfg.AdminAPIKey,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	pruner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
