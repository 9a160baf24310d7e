package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"call-sentiment-go/internal/analyzer"
	"call-sentiment-go/internal/history"
	"call-sentiment-go/internal/logger"
	"call-sentiment-go/internal/nlpclient"
	"call-sentiment-go/internal/processor"
	"call-sentiment-go/internal/server"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "call-sentiment-go").Info("starting service")

	// NLP model services; one client provides all three capabilities
	clients := nlpclient.NewFromEnv()
	annotator := analyzer.NewAnnotator(clients, clients, clients)
	proc := processor.New(annotator)

	// optional history store
	var store *history.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			cancel()
			log.WithError(err).Fatal("failed to connect to database")
		}
		store = history.New(pool)
		if err := store.Migrate(ctx); err != nil {
			cancel()
			log.WithError(err).Fatal("failed to migrate history schema")
		}
		cancel()
		defer pool.Close()
		log.Info("history store ready")
	} else {
		log.Warn("DATABASE_URL not set, auth/history endpoints disabled")
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) > 0 {
		log.WithField("origins", origins).Info("CORS restricted to configured origins")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", envOr("PORT", "8080")),
		Handler:      server.New(proc, store, os.Getenv("DATASET_PATH"), origins).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
