// Package router wires every HTTP surface of the platform: the public
// website endpoints, the chat widget transport, and the JWT-protected
// admin back office.
package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mzansiprolife/platform/internal/analytics"
	"github.com/mzansiprolife/platform/internal/audit"
	"github.com/mzansiprolife/platform/internal/catalog"
	"github.com/mzansiprolife/platform/internal/comms"
	"github.com/mzansiprolife/platform/internal/content"
	"github.com/mzansiprolife/platform/internal/conversation"
	"github.com/mzansiprolife/platform/internal/donations"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/internal/observability/metrics"
	"github.com/mzansiprolife/platform/internal/submissions"
	"github.com/mzansiprolife/platform/internal/users"
	"github.com/mzansiprolife/platform/internal/widget"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	WidgetHandler       *widget.Handler
	SubmissionsHandler  *submissions.Handler
	DonationsHandler    *donations.Handler
	ContentHandler      *content.Handler
	UsersHandler        *users.Handler
	CommsHandler        *comms.Handler
	AnalyticsHandler    *analytics.Handler
	AuditHandler        *audit.Handler
	ConversationHandler *conversation.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	HTTPMetrics        *metrics.HTTPMetrics
	CORSAllowedOrigins []string

	// Rate limiting applied to the public form and chat endpoints. Zero
	// disables it.
	RateLimitPerSec float64
	RateLimitBurst  int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.HTTPMetrics != nil {
		r.Use(observeRequests(cfg.HTTPMetrics))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/healthz", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Get("/products", catalog.ListProducts)

		if cfg.ContentHandler != nil {
			public.Get("/pages/{slug}", cfg.ContentHandler.GetPublic)
		}

		if cfg.UsersHandler != nil {
			public.Post("/auth/login", cfg.UsersHandler.Login)
		}

		// Form submissions and donation pledges come straight from the
		// website, so they get per-IP rate limiting.
		public.Group(func(limited chi.Router) {
			if cfg.RateLimitPerSec > 0 {
				limited.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
			}
			if cfg.SubmissionsHandler != nil {
				limited.Post("/submissions", cfg.SubmissionsHandler.Create)
			}
			if cfg.DonationsHandler != nil {
				limited.Post("/donations", cfg.DonationsHandler.Create)
			}
			if cfg.WidgetHandler != nil {
				limited.Route("/api/chat", func(chat chi.Router) {
					chat.Post("/message", cfg.WidgetHandler.HandleMessage)
					chat.Get("/history", cfg.WidgetHandler.HandleHistory)
				})
			}
		})

		if cfg.WidgetHandler != nil {
			public.Get("/chat/ws", cfg.WidgetHandler.HandleWebSocket)
			public.Get("/chat/widget.js", cfg.WidgetHandler.HandleWidgetJS)
		}
	})

	// Admin routes, protected by HMAC JWT
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			staff := httpmiddleware.RequireRole(users.RoleAdmin, users.RoleEditor)
			adminOnly := httpmiddleware.RequireRole(users.RoleAdmin)

			if cfg.SubmissionsHandler != nil {
				admin.Route("/submissions", func(sub chi.Router) {
					sub.Get("/", cfg.SubmissionsHandler.List)
					sub.Get("/export", cfg.SubmissionsHandler.ExportCSV)
					sub.Get("/{id}", cfg.SubmissionsHandler.Get)
					sub.With(staff).Patch("/{id}/status", cfg.SubmissionsHandler.UpdateStatus)
				})
			}

			if cfg.DonationsHandler != nil {
				admin.Route("/donations", func(don chi.Router) {
					don.Get("/", cfg.DonationsHandler.List)
					don.Get("/stats", cfg.DonationsHandler.Stats)
					don.With(staff).Post("/{reference}/received", cfg.DonationsHandler.MarkReceived)
				})
			}

			if cfg.ContentHandler != nil {
				admin.Route("/pages", func(pages chi.Router) {
					pages.Get("/", cfg.ContentHandler.List)
					pages.With(staff).Post("/", cfg.ContentHandler.Create)
					pages.With(staff).Put("/{slug}", cfg.ContentHandler.Update)
					pages.With(staff).Patch("/{slug}/published", cfg.ContentHandler.SetPublished)
				})
			}

			if cfg.ConversationHandler != nil {
				admin.Route("/conversations", func(conv chi.Router) {
					conv.Get("/", cfg.ConversationHandler.ListConversations)
					conv.Get("/{sessionID}", cfg.ConversationHandler.GetConversation)
				})
			}

			if cfg.AnalyticsHandler != nil {
				admin.Get("/stats", cfg.AnalyticsHandler.Dashboard)
			}

			if cfg.CommsHandler != nil {
				admin.With(staff).Post("/comms/send", cfg.CommsHandler.Send)
				admin.Get("/comms/log", cfg.CommsHandler.Log)
			}

			if cfg.AuditHandler != nil {
				admin.With(adminOnly).Get("/audit", cfg.AuditHandler.List)
			}

			if cfg.UsersHandler != nil {
				admin.Route("/users", func(u chi.Router) {
					u.Use(adminOnly)
					u.Get("/", cfg.UsersHandler.List)
					u.Post("/", cfg.UsersHandler.Create)
					u.Patch("/{id}/role", cfg.UsersHandler.UpdateRole)
					u.Delete("/{id}", cfg.UsersHandler.Deactivate)
				})
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// observeRequests records request counts and latency per method.
func observeRequests(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.ObserveRequest(r.Method, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
		})
	}
}
