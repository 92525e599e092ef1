// Route registration and go-chi router setup.
// Public routes serve the core chat surface (identity optional); the
// /api/v1/* history and usage routes require a Bearer JWT.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alphamind/gateway/internal/api/handlers"
	apimiddleware "github.com/alphamind/gateway/internal/api/middleware"
	"github.com/alphamind/gateway/internal/domain/files"
	"github.com/alphamind/gateway/internal/infra/stream"
)

// Deps carries the wired services the router exposes.
type Deps struct {
	Chat      handlers.ChatService
	Catalog   handlers.ModelCatalog
	History   handlers.HistoryService
	Usage     handlers.UsageService
	Hub       *stream.Hub
	Extractor files.Extractor
	Log       zerolog.Logger
}

// NewRouter creates and configures the chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	chatHandler := handlers.NewChatHandler(deps.Chat)
	streamHandler := handlers.NewChatStreamHandler(deps.Chat)
	wsHandler := handlers.NewWSChatHandler(deps.Chat, deps.Hub, deps.Log)
	modelsHandler := handlers.NewModelsHandler(deps.Catalog)
	healthHandler := handlers.NewHealthHandler(deps.Chat)

	// Core chat surface. Anonymous callers are served; a valid Bearer
	// token additionally threads identity through for usage accounting.
	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.OptionalAuth)

		r.Get("/models", modelsHandler.ListModels)       // GET  /models
		r.Post("/chat", chatHandler.Chat)                // POST /chat
		r.Post("/chat/stream", streamHandler.ChatStream) // POST /chat/stream
		r.Get("/ws/chat/{client_id}", wsHandler.Chat)    // GET  /ws/chat/{client_id}
	})

	// Health check — unauthenticated, used by load balancers and probes.
	r.Get("/health", healthHandler.Health)

	// History and usage require an authenticated user.
	sessionsHandler := handlers.NewSessionsHandler(deps.History, deps.Extractor)
	usageHandler := handlers.NewUsageHandler(deps.Usage)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.AuthMiddleware)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionsHandler.CreateSession)            // POST /api/v1/sessions
			r.Get("/", sessionsHandler.ListSessions)              // GET  /api/v1/sessions
			r.Get("/{id}/messages", sessionsHandler.ListMessages) // GET  /api/v1/sessions/{id}/messages
			r.Post("/{id}/messages", sessionsHandler.AppendMessage)
		})

		r.Get("/usage", usageHandler.Totals) // GET /api/v1/usage
	})

	return r
}
