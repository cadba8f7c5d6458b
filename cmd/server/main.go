// Package main runs the demande service HTTP server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/agglo-acv/demande-service/internal/app"
	"github.com/agglo-acv/demande-service/internal/app/httpapi"
	"github.com/agglo-acv/demande-service/internal/app/metrics"
	"github.com/agglo-acv/demande-service/internal/app/services/demandes"
	"github.com/agglo-acv/demande-service/internal/app/storage"
	"github.com/agglo-acv/demande-service/internal/app/storage/postgres"
	"github.com/agglo-acv/demande-service/internal/config"
	"github.com/agglo-acv/demande-service/internal/middleware"
	"github.com/agglo-acv/demande-service/internal/notify"
	"github.com/agglo-acv/demande-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demande-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).Named("server")

	store, db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	mailer, err := notify.NewMailer(notify.Config{
		URL:                cfg.Mailer.URL,
		Timeout:            cfg.Mailer.Timeout,
		InsecureSkipVerify: cfg.Mailer.InsecureSkipVerify,
	}, log.Named("mailer"))
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	application, err := app.New(app.Stores{Demandes: store}, mailer, demandes.Config{
		AdminEmail: cfg.Mailer.AdminEmail,
		SuiviURL:   cfg.Mailer.SuiviURL,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	router := httpapi.NewHandler(application.Demandes, mailer, log.Named("httpapi"))
	router.Use(middleware.LoggingMiddleware(log.Named("http")))

	var handler http.Handler = router
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
		limiter.StartCleanup(10 * time.Minute)
		defer limiter.Stop()
		handler = limiter.Handler(handler)
	}
	handler = middleware.NewCORSMiddleware(strings.Split(cfg.CORS.Origin, ",")).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("serveur démarré")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("arrêt du serveur")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("arrêt HTTP incomplet")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("arrêt des services incomplet")
	}
	return nil
}

// openStore selects the configured store. The postgres pool is returned so the
// caller owns its lifetime; it is nil for the memory store.
func openStore(cfg *config.Config, log *logger.Logger) (storage.DemandeStore, *sql.DB, error) {
	if cfg.Database.Store != "postgres" {
		log.Info("stockage en mémoire activé")
		return nil, nil, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.WithField("host", cfg.Database.Host).
		WithField("database", cfg.Database.Name).
		Info("connexion PostgreSQL établie")
	return postgres.New(db), db, nil
}
