package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/realtime-chat/internal/middleware"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// Handlers groups everything mounted on the router.
type Handlers struct {
	Health   *HealthHandler
	Users    *UserHandler
	Messages *MessageHandler
	Groups   *GroupHandler
	// Realtime serves the WebSocket upgrade on /ws.
	Realtime http.Handler
}

// RouterOptions tunes the global middleware.
type RouterOptions struct {
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the HTTP surface.
func NewRouter(h Handlers, opts RouterOptions, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	if h.Realtime != nil {
		r.Get("/ws", h.Realtime.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitRequests, opts.RateLimitWindow))
		}

		r.Post("/users", h.Users.Create)
		r.Put("/users/consent", h.Users.Consent)

		r.Post("/messages", h.Messages.Send)
		r.Get("/messages/{userId}/assistant", h.Messages.List)
		r.Post("/generate-response", h.Messages.GenerateResponse)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.Groups.Create)
			r.Get("/user/{userId}", h.Groups.ListForUser)

			r.Route("/{groupId}", func(r chi.Router) {
				r.Get("/", h.Groups.Get)
				r.Put("/", h.Groups.Update)
				r.Delete("/", h.Groups.Delete)

				r.Post("/members", h.Groups.AddMember)
				r.Delete("/members/{memberId}", h.Groups.RemoveMember)

				r.Post("/messages", h.Groups.SendMessage)
				r.Get("/messages", h.Groups.ListMessages)
			})
		})
	})

	return r
}
