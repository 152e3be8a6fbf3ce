// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/grimoire/internal/apperr"
	"github.com/starford/grimoire/internal/catalog"
	"github.com/starford/grimoire/internal/devserver"
	"github.com/starford/grimoire/internal/mapview"
	"github.com/starford/grimoire/internal/render"
	"github.com/starford/grimoire/internal/search"
	"github.com/starford/grimoire/internal/site"
	"github.com/starford/grimoire/internal/sse"
	"github.com/starford/grimoire/internal/storage"
	"github.com/starford/grimoire/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	return app, nil
}

// siteConfig maps the application configuration onto a builder configuration.
func siteConfig(cfg *Config, liveReload bool) site.Config {
	sc := site.Config{
		VaultPath:    cfg.Vault.Path,
		ImagesFolder: cfg.Vault.ImagesFolder,
		AssetsDir:    cfg.Output.AssetsDir,
		SiteTitle:    cfg.Site.Title,
		LiveReload:   liveReload,
		Sections:     make([]render.Section, len(cfg.Folders)),
		Categories:   cfg.Categories(),
	}
	for i, f := range cfg.Folders {
		sc.Sections[i] = render.Section{Folder: f.Name, Title: f.Title, Home: f.Home}
	}
	if cfg.Map.Note != "" {
		sc.Map = site.MapConfig{
			Note:        cfg.Map.Note,
			Title:       cfg.Map.Title,
			Description: cfg.Map.Description,
			View: mapview.Config{
				DataPath: cfg.MapDataPath(),
				MapID:    cfg.Map.MapID,
				Image:    cfg.Map.Image,
				Width:    cfg.Map.Width,
				Height:   cfg.Map.Height,
			},
		}
	}
	return sc
}

// newBuilder opens the output directory and the optional catalog. The
// returned cleanup closes the catalog.
func (a *application) newBuilder(liveReload bool) (*site.Builder, catalog.Store, func(), error) {
	cfg := a.config
	if _, err := os.Stat(cfg.Vault.Path); err != nil {
		return nil, nil, nil, fmt.Errorf("vault %s: %w", cfg.Vault.Path, err)
	}
	if err := cfg.checkOutputPath(); err != nil {
		return nil, nil, nil, err
	}

	out, err := storage.NewFS(cfg.Output.Path, a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init output: %w", err)
	}

	var cat catalog.Store
	cleanup := func() {}
	if cfg.Catalog.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create catalog dir: %w", err)
		}
		db, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init catalog: %w", err)
		}
		cat = db
		cleanup = func() {
			if err := db.Close(); err != nil {
				a.logger.Warn("catalog close failed", slog.String("error", err.Error()))
			}
		}
	}

	return site.New(siteConfig(cfg, liveReload), out, cat, a.logger), cat, cleanup, nil
}

// Build generates the site once.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	app.logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	builder, _, cleanup, err := app.newBuilder(false)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

// Search queries the search index of an already built site.
func Search(_ context.Context, query string, limit int, opts ...Option) ([]search.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(app.config.Output.Path, site.SearchIndexFile)
	records, err := search.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, apperr.ErrNoIndex)
		}
		return nil, err
	}
	return search.Query(records, query, limit), nil
}

// Serve builds the site, serves it over HTTP and rebuilds on every vault
// change until ctx is cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	builder, cat, cleanup, err := app.newBuilder(cfg.Site.LiveReload)
	if err != nil {
		return err
	}
	defer cleanup()

	broker := sse.NewBroker()
	defer broker.Close()

	index := &devserver.Index{}
	rebuild := func(ctx context.Context) {
		res, err := builder.Build(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("build failed", slog.String("error", err.Error()))
			broker.PublishBuild(sse.BuildReport{Err: err})
			return
		}
		index.Set(res.Records)
		broker.PublishBuild(sse.BuildReport{Pages: res.Pages, Duration: res.Duration})
	}
	rebuild(ctx)

	vaultRoot, err := filepath.Abs(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("resolve vault path: %w", err)
	}
	ignore := []string{cfg.Output.Path}
	if p := cfg.Catalog.Path; p != "" {
		ignore = append(ignore, p, p+"-wal", p+"-shm", p+"-journal")
	}

	httpServer := &http.Server{
		Addr: cfg.App.HTTP.Address(),
		Handler: devserver.NewRouter(devserver.Options{
			Root:    cfg.Output.Path,
			Index:   index,
			Catalog: cat,
			Events:  broker,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := watch.Watch(gCtx, vaultRoot, watch.Options{Ignore: ignore}, logger, rebuild)
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group's context so the watcher stops once the
// server is down.
var errShutdown = errors.New("shutdown")
