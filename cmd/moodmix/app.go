package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/justestif/moodmix/internal/auth"
	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/config"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/db"
	"github.com/justestif/moodmix/internal/emotion"
	"github.com/justestif/moodmix/internal/enrich"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/lastfm"
	"github.com/justestif/moodmix/internal/logger"
	"github.com/justestif/moodmix/internal/spotify"
	"github.com/justestif/moodmix/internal/sqlite"
	"github.com/justestif/moodmix/internal/sync"
)

// app holds the configured stores and shared dependencies.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	consent  consent.Store
	history  history.Store
	catalogs sync.CatalogStore // nil for the memory driver
	closers  []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{
		cfg: cfg,
		logger: logger.New(logger.Config{
			Writer:      os.Stderr,
			Format:      cfg.Logger.Format,
			Environment: cfg.App.Environment,
			Level:       logger.ParseLevel(cfg.Logger.Level),
		}),
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.consent = database.Consent()
		a.history = database.History()
		a.catalogs = database.CatalogStore()
		a.closers = append(a.closers, closerFunc(func() error { database.Close(); return nil }))

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.consent = store
		a.history = store
		a.catalogs = store
		a.closers = append(a.closers, store)

	default:
		a.consent = consent.NewMemoryStore()
		a.history = history.NewMemoryStore()
	}

	a.logger.Debug("storage ready", "driver", cfg.Storage.Driver)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// baseCatalog is the configured catalog file, or the built-in catalog.
func (a *app) baseCatalog() (*catalog.Catalog, error) {
	if a.cfg.App.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(a.cfg.App.CatalogPath)
}

// servingCatalog prefers the synced catalog and falls back to the base one
// when nothing has been synced.
func (a *app) servingCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if a.catalogs != nil {
		cat, err := sync.New(a.catalogs, sync.WithLogger(a.logger)).Load(ctx)
		if err == nil {
			return cat, nil
		}
		if !errors.Is(err, sync.ErrEmptyCatalog) {
			return nil, fmt.Errorf("loading stored catalog: %w", err)
		}
		a.logger.Info("stored catalog is empty, using base catalog; run 'moodmix sync' to seed it")
	}
	return a.baseCatalog()
}

func (a *app) classifier() emotion.Classifier {
	if url := a.cfg.Providers.EmotionAPIURL; url != "" {
		return emotion.NewHTTPClient(url)
	}
	a.logger.Warn("EMOTION_API_URL not set, using the mock classifier")
	return emotion.Mock{}
}

// enricher builds an enrichment service from whichever providers are
// configured.
func (a *app) enricher(ctx context.Context) (*enrich.Service, error) {
	opts := []enrich.Option{enrich.WithLogger(a.logger)}

	if key := a.cfg.Providers.LastFMAPIKey; key != "" {
		lfCfg, err := lastfm.NewConfig(key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, enrich.WithGenres(lastfm.NewClient(lfCfg)))
	}

	if a.cfg.Providers.SpotifyEnabled() {
		cache, err := auth.DefaultTokenCache()
		if err != nil {
			a.logger.Warn("token cache unavailable", "error", err)
		}
		authenticator, err := auth.New(auth.Config{
			ClientID:     a.cfg.Providers.SpotifyID,
			ClientSecret: a.cfg.Providers.SpotifySecret,
			Cache:        cache,
			Logger:       a.logger,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, enrich.WithFeatures(spotify.New(authenticator.Client(ctx), a.logger)))
	}

	return enrich.NewService(opts...), nil
}
