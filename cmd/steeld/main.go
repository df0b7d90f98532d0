// steeld is a local stand-in for the Steel Browser session service. It
// serves the session API on :3000 backed by one Chrome container per
// session, so steeldrive and steelsmoke can run without the real thing.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/asadmujeeb/steeldrive/internal/browserpool"
	"github.com/asadmujeeb/steeldrive/internal/devserver"
	"github.com/asadmujeeb/steeldrive/internal/logging"
	"github.com/asadmujeeb/steeldrive/internal/ratelimit"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	logging.Setup(os.Getenv("STEEL_LOG_LEVEL"))
	log := logging.Component("steeld")

	addr := os.Getenv("STEELD_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	pool, err := browserpool.NewPool()
	if err != nil {
		log.Error("failed to create browser pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	pullCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info("ensuring Chrome image is available")
	if err := pool.EnsureImage(pullCtx); err != nil {
		log.Error("failed to ensure image", "error", err)
		os.Exit(1)
	}
	log.Info("Chrome image ready")

	limiter := ratelimit.NewLimiter(100, 10)
	server := devserver.New(pool, limiter, logging.Component("devserver"))

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("session service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	server.Shutdown(shutdownCtx)

	log.Info("stopped cleanly")
}
