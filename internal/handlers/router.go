package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mathwizard/internal/security"
)

// RouterConfig holds the handlers and settings used to build the HTTP router
type RouterConfig struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Children   *ChildHandler
	Parents    *ParentHandler
	Admin      *AdminHandler
	Topics     *TopicHandler
	Health     *HealthHandler

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter wires every API route onto a chi router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	limit := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, func(w http.ResponseWriter, r *http.Request) {
		respondWithStatus(w, http.StatusTooManyRequests, ErrTooManyRequests)
	})

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/login/child", cfg.Auth.LoginChild)
			r.Post("/auth/check-email", cfg.Auth.CheckEmail)
			r.Post("/register/parent", cfg.Auth.RegisterParent)
			r.Post("/register/school", cfg.Auth.RegisterSchool)
			r.Post("/verify/resend", cfg.Auth.ResendVerification)
		})
		r.Get("/verify-email", cfg.Auth.VerifyEmail)
		r.Post("/verify-code", cfg.Auth.VerifyCode)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(cfg.Middleware.RequireAuth)
			r.Use(cfg.Middleware.Authorize)

			r.Get("/topics/{year}", cfg.Topics.GetTopics)

			r.Post("/children", cfg.Children.AddChild)
			r.Get("/children/{username}", cfg.Children.GetChild)
			r.Delete("/children/{username}", cfg.Children.RemoveChild)
			r.Post("/children/{username}/progress", cfg.Children.RecordProgress)
			r.Get("/parents/{email}/children", cfg.Children.ListChildren)

			r.Put("/parent/settings/{email}", cfg.Parents.UpdateSettings)
			r.Get("/parent/partners/{email}", cfg.Parents.ListPartners)
			r.Post("/parent/partners/{email}", cfg.Parents.AddPartner)
			r.Delete("/parent/partners/{email}/{partnerEmail}", cfg.Parents.RemovePartner)
			r.Post("/create-checkout-session", cfg.Parents.CreateCheckoutSession)

			r.Get("/admin/users", cfg.Admin.ListUsers)
			r.Delete("/admin/users/{id}", cfg.Admin.DeleteUser)
			r.Put("/admin/update-parent/{id}", cfg.Admin.UpdateParent)
			r.Put("/admin/update-school/{id}", cfg.Admin.UpdateSchool)
			r.Get("/admin/system-logs", cfg.Admin.SystemLogs)
			r.Get("/admin/backup", cfg.Admin.ExportBackup)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithStatus(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithStatus(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
