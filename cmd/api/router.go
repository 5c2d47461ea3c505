package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aydinberk/sumchat/internal/completion"
	"github.com/aydinberk/sumchat/internal/config"
	"github.com/aydinberk/sumchat/internal/handlers"
	"github.com/aydinberk/sumchat/internal/middleware"
	"github.com/aydinberk/sumchat/internal/repo"
	"github.com/aydinberk/sumchat/internal/service"
	"github.com/aydinberk/sumchat/internal/token"
)

// newRouter wires the full HTTP surface. Kept separate from main so the
// integration tests can run the real middleware chain against httptest.
func newRouter(database *sql.DB, cfg config.Config, provider completion.Provider) http.Handler {
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), time.Duration(cfg.JWTExpireHours)*time.Hour)
	authSvc := service.NewAuthService(repo.NewUserRepo(database), issuer)

	authH := &handlers.AuthHandler{Auth: authSvc}
	askH := &handlers.AskHandler{
		Provider:    provider,
		Transcripts: repo.NewTranscriptRepo(database),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Ping(); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public auth endpoints, rate limited against credential stuffing
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthRateLimiter().Middleware)
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/verify-token", authH.VerifyToken)
	})

	// Protected endpoints: the session guard runs before any handler logic
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionGuard(issuer))
		r.Post("/logout", authH.Logout)
		r.Get("/userinfo", authH.UserInfo)
		r.Post("/userinfo", authH.UserInfo)
		r.Post("/ask/summary", askH.Summary)
		r.Post("/ask/summary/stream", askH.SummaryStream)
	})

	return r
}
