package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/graphql-go/graphql"
	"github.com/isdelr/goodcontent-auth/internal/api/handlers"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/services"
	"github.com/isdelr/goodcontent-auth/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Schema         graphql.Schema
	Auth           *services.AuthService
	Events         services.EventServiceProvider
	Hub            *websocket.Hub
	SecureCookies  bool
	AdminKey       string
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	// The signup page and GraphQL clients send the session cookie, so
	// origins must be listed explicitly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.AdminKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	graphqlHandler := handlers.NewGraphQLHandler(deps.Schema)
	signupHandler := handlers.NewSignupHandler(deps.Auth, deps.SecureCookies)
	healthHandler := handlers.NewHealthHandler(deps.Auth)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.AllowedOrigins)
	systemHandler := handlers.NewSystemHandler()

	r.Get("/", signupHandler.Home)
	r.Get("/signup", signupHandler.Form)
	r.Post("/signup", signupHandler.Submit)
	r.Get("/healthz", healthHandler.Check)

	r.Get("/graphql", graphqlHandler.Serve)
	r.Post("/graphql", graphqlHandler.Serve)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.AdminKeyMiddleware(deps.AdminKey))

		r.Get("/events", eventHandler.GetRecent)
		r.Get("/system", systemHandler.GetStats)
		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("req_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
