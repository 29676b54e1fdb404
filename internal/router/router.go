package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"portfolio-assistant/internal/handlers"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/websocket"
)

// Options carries the optional pieces of the chat route group.
type Options struct {
	OriginPolicy *middleware.OriginPolicy
	MaxBodyBytes int64
	RateLimiter  *middleware.RateLimiter // nil disables rate limiting
	JWTAuth      *middleware.JWTAuth     // nil leaves chat routes public
	AccessLog    bool
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Only set it when a
	// proxy in front of the server overwrites those headers.
	TrustProxy bool
}

func New(
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	wsRelay *websocket.Relay,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	if opts.AccessLog {
		r.Use(chimiddleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(opts.OriginPolicy))
	r.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	r.Get("/api/health", healthHandler.Health)

	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/health", chatHandler.Health)

		r.Group(func(r chi.Router) {
			if opts.JWTAuth != nil {
				r.Use(opts.JWTAuth.Middleware)
			}
			if opts.RateLimiter != nil {
				r.With(opts.RateLimiter.Middleware).Post("/", chatHandler.Chat)
			} else {
				r.Post("/", chatHandler.Chat)
			}
			// Frames are rate limited individually inside the relay.
			r.Get("/ws", wsRelay.HandleWebSocket)
		})
	})

	return r
}
