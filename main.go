package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/db"
	"github.com/debemdeboas/the-press/internal/drafts"
	"github.com/debemdeboas/the-press/internal/logger"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/publish"
	"github.com/debemdeboas/the-press/internal/render"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/debemdeboas/the-press/internal/sse"
	"github.com/debemdeboas/the-press/internal/util/compression"
)

//go:embed static/* templates/*
var content embed.FS

const defaultConfigPath = "config.yaml"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if err := config.LoadConfig(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	setLoggers(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Stack().Err(err).Msg("Server stopped")
	}
}

func setLoggers(log zerolog.Logger) {
	config.SetLogger(logger.Component(log, "config"))
	db.SetLogger(logger.Component(log, "db"))
	repository.SetLogger(logger.Component(log, "repository"))
	auth.SetLogger(logger.Component(log, "auth"))
	render.SetLogger(logger.Component(log, "render"))
	sse.SetLogger(logger.Component(log, "sse"))
	publish.SetLogger(logger.Component(log, "publish"))
	drafts.SetLogger(logger.Component(log, "drafts"))
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDb(); err != nil {
		return fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	compressor, err := compression.New(cfg.Content.Compression)
	if err != nil {
		return err
	}
	posts := repository.NewDBPostRepository(database, compressor)

	provider, err := newAuthProvider(cfg, posts)
	if err != nil {
		return err
	}

	mirror, err := newMirror(ctx, cfg)
	if err != nil {
		return err
	}

	timeout, err := cfg.Server.Timeout()
	if err != nil {
		return err
	}

	if !cfg.Publish.RequireOwner {
		log.Warn().Msg("publish.require_owner is false: any caller can publish any post")
	}

	a, err := newApp(appOptions{
		Config:   cfg,
		Posts:    posts,
		Provider: provider,
		Mirror:   mirror,
		Content:  content,
		Timeout:  timeout,
		Log:      log,
	})
	if err != nil {
		return err
	}

	if err := posts.Init(ctx); err != nil {
		return fmt.Errorf("%s: %w", config.ErrInitializingPosts, err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		// SSE responses outlive a single write deadline.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("auth", cfg.Auth.Type).Msg("Listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newAuthProvider(cfg *config.Config, users auth.UserStore) (auth.AuthProvider, error) {
	switch cfg.Auth.Type {
	case config.AuthTypeClerk:
		key := os.Getenv("CLERK_API")
		if key == "" {
			return nil, errors.New("CLERK_API is not set")
		}
		return auth.NewClerkAuthProvider(key, users), nil
	default:
		admin := model.User{
			ID:       model.UserID(cfg.Auth.AdminUserID),
			Username: cfg.Auth.AdminUserID,
			Name:     cfg.Auth.AdminName,
		}

		// Posts join against users, so the operator needs a row too.
		if err := users.UpsertUser(context.Background(), admin); err != nil {
			return nil, err
		}

		p, err := auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), cfg.Auth.HeaderName, admin)
		if err != nil {
			return nil, fmt.Errorf(config.ErrCreateProviderFmt, err)
		}
		return p, nil
	}
}

func newMirror(ctx context.Context, cfg *config.Config) (repository.Mirror, error) {
	if !cfg.Mirror.Enabled {
		return repository.NopMirror{}, nil
	}

	return repository.NewS3Mirror(ctx, repository.S3MirrorOptions{
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Endpoint:        cfg.Mirror.Endpoint,
		Region:          cfg.Mirror.Region,
		Bucket:          cfg.Mirror.Bucket,
		Prefix:          cfg.Mirror.Prefix,
	})
}
