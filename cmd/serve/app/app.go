package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/solarforecast/goes-viewer/internal/catalog"
	"github.com/solarforecast/goes-viewer/internal/sites"
)

const shutdownTimeout = 5 * time.Second

// Run starts the viewer server and blocks until the context is canceled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.FramesDir); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("frames directory '%s' does not exist: %w", config.FramesDir, err)
	}

	store := catalog.NewSqliteStore(config.CatalogDB)
	defer store.Close()

	// Index any frames published while the server was down.
	added, err := store.SyncDir(ctx, config.FramesDir)
	if err != nil {
		return fmt.Errorf("syncing frames directory: %w", err)
	}
	if added > 0 {
		logger.Info("indexed frames found on disk", slog.Int("added", added))
	}

	srv, err := newServer(config, store, logger, newMetrics())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if config.SitesURL != "" {
		client := sites.NewClient(config.SitesURL, config.SitesFilters, config.SitesUser, config.SitesPass)
		go srv.runSitesRefresher(ctx, client, config.SitesRefresh)
	}

	httpSrv := http.Server{
		Addr:    config.Listen,
		Handler: srv.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", config.Listen))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runSitesRefresher keeps metadata.json current on the configured interval.
// Feed failures are logged and retried on the next tick.
func (s *server) runSitesRefresher(ctx context.Context, client *sites.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.refreshSites(ctx, client); err != nil {
			s.logger.Warn("site marker refresh failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
