package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aydinberk/sumchat/internal/completion"
	"github.com/aydinberk/sumchat/internal/config"
	"github.com/aydinberk/sumchat/internal/db"
	"github.com/aydinberk/sumchat/internal/repo"
	"github.com/aydinberk/sumchat/internal/scheduler"
)

func main() {

	// Load configuration
	cfg := config.Load()

	setupLogging(cfg.LogFormat)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		log.Fatal("JWT_SECRET must be set in prod")
	}

	// Connect to database FIRST
	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	slog.Info("connected to database", "host", cfg.DBHost, "db", cfg.DBName)

	if err := db.Run(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	provider := completion.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)

	stopRetention := scheduler.RunRetention(repo.NewTranscriptRepo(database), cfg.TranscriptRetentionDays)
	defer stopRetention()

	r := newRouter(database, cfg, provider)

	// Start server LAST
	addr := ":" + cfg.Port
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		slog.Info("starting server with TLS", "addr", addr)
		err = http.ListenAndServeTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile, r)
	} else {
		slog.Info("starting server", "addr", addr)
		err = http.ListenAndServe(addr, r)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// setupLogging configures the default slog handler: text for humans, json for
// log shippers.
func setupLogging(format string) {
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}
