// Command greenauthd serves the authentication API: login, refresh-token
// rotation, logout, and role administration, backed by Postgres for the
// user directory and Redis for refresh sessions.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/httpapi"
	"github.com/verdantio/greenauth/internal/directory"
	"github.com/verdantio/greenauth/migrations"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "greenauthd").Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(logger zerolog.Logger) error {
	addr := envOr("GREENAUTH_ADDR", ":8080")
	redisAddr := envOr("GREENAUTH_REDIS_ADDR", "localhost:6379")
	dsn := os.Getenv("GREENAUTH_DATABASE_DSN")
	if dsn == "" {
		return errors.New("GREENAUTH_DATABASE_DSN is required")
	}
	accessSecret := os.Getenv("GREENAUTH_ACCESS_SECRET")
	refreshSecret := os.Getenv("GREENAUTH_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return errors.New("GREENAUTH_ACCESS_SECRET and GREENAUTH_REFRESH_SECRET are required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(startupCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	cfg := greenauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(accessSecret)
	cfg.JWT.RefreshSecret = []byte(refreshSecret)
	cfg.Cookie.Secure = os.Getenv("GREENAUTH_PRODUCTION") == "true"

	dir := directory.NewPostgres(db)

	engine, err := greenauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	if err := engine.Ping(startupCtx); err != nil {
		return fmt.Errorf("ping session store: %w", err)
	}

	api := httpapi.NewServer(engine, dir, logger)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
