package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Public
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	VerifyOTP(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)

	// Bearer token required
	ChangePassword(w http.ResponseWriter, r *http.Request)
	ChangeProfile(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler

	AuthMW func(http.Handler) http.Handler

	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", deps.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", deps.Auth.Register)
		r.Post("/login", deps.Auth.Login)
		r.Post("/verify-otp", deps.Auth.VerifyOTP)
		r.Post("/forgot-password", deps.Auth.ForgotPassword)
		r.Post("/reset-password", deps.Auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Post("/change-password", deps.Auth.ChangePassword)
			r.Post("/change-profile", deps.Auth.ChangeProfile)
			r.Get("/me", deps.Auth.Me)
		})
	})

	return r, nil
}
