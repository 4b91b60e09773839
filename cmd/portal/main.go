package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/auth"
	"github.com/studystem/tutoring/internal/config"
	httptransport "github.com/studystem/tutoring/internal/http"
	"github.com/studystem/tutoring/internal/logging"
	"github.com/studystem/tutoring/internal/persistence/sqlite"
	"github.com/studystem/tutoring/internal/persistence/sqlite/migration"
	"github.com/studystem/tutoring/internal/storage"
)

// principalCacheTTL bounds how long a role change takes to reach live tokens.
const principalCacheTTL = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(""); err != nil {
		slog.Error("failed to read .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	objects, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		logger.Error("failed to configure object storage", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL, time.Now)
	if err != nil {
		logger.Error("failed to configure session tokens", "error", err)
		os.Exit(1)
	}

	handler := newHandler(cfg, store, objects, tokens, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("tutoring portal listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newHandler wires the services over the SQLite store and the object store
// and returns the fully wrapped HTTP handler.
func newHandler(cfg config.Config, store *sqlite.Storage, objects application.ObjectStore, tokens application.TokenVerifier, logger *slog.Logger) http.Handler {
	idGenerator := uuid.NewString
	now := time.Now

	profiles := newProfileRepositoryAdapter(store)
	events := newEventRepositoryAdapter(store)
	notes := newNoteRepositoryAdapter(store)
	materials := newMaterialRepositoryAdapter(store)

	eventService := application.NewEventServiceWithLogger(events, profiles, idGenerator, now, logger)
	profileService := application.NewProfileServiceWithLogger(profiles, idGenerator, now, logger)
	noteService := application.NewNoteServiceWithLogger(application.NoteServiceDeps{
		Notes:     notes,
		Materials: materials,
		Events:    events,
		Profiles:  profiles,
		Objects:   objects,
	}, idGenerator, now, logger)
	materialService := application.NewMaterialServiceWithLogger(application.MaterialServiceDeps{
		Materials: materials,
		Notes:     notes,
		Events:    events,
		Profiles:  profiles,
		Objects:   objects,
	}, application.MaterialOptions{
		MaxBytes: cfg.MaterialMaxBytes,
		LinkTTL:  cfg.MaterialURLTTL,
	}, idGenerator, now, logger)
	resolver := application.NewRoleResolverWithLogger(tokens, profiles, principalCacheTTL, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Events:     httptransport.NewEventHandler(eventService, cfg.Location, logger),
		Notes:      httptransport.NewNoteHandler(noteService, cfg.Location, logger),
		Materials:  httptransport.NewMaterialHandler(materialService, cfg.MaterialMaxBytes, cfg.Location, logger),
		Profiles:   httptransport.NewProfileHandler(profileService, cfg.Location, logger),
		Resolver:   resolver,
		Health:     store,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}
