package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/solarforecast/goes-viewer/internal/catalog"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
	"github.com/solarforecast/goes-viewer/internal/resample"
)

// Run processes the given source files into published frames. Files are
// independent pipelines fanned out over a worker pool; a malformed file is
// dropped with a log line and does not stop the batch.
func Run(ctx context.Context, config *Config, logger *slog.Logger, files []string) error {
	if len(files) == 0 {
		return errors.New("no input files to process")
	}

	if err := os.MkdirAll(config.Processing.FramesDir, 0o755); err != nil {
		return fmt.Errorf("creating frames directory: %w", err)
	}

	store := catalog.NewSqliteStore(config.Processing.CatalogDB)
	defer store.Close()

	pipe, err := newPipeline(config, store)
	if err != nil {
		return err
	}
	defer pipe.Close()

	logger.Info("processing batch",
		slog.Int("files", len(files)),
		slog.Int("workers", config.Processing.Workers),
		slog.String("framesDir", config.Processing.FramesDir))

	filesCh := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var done, skipped, failed int

	for range config.Processing.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range filesCh {
				res, err := pipe.processFile(ctx, path)

				mu.Lock()
				switch {
				case err != nil:
					failed++
					mu.Unlock()
					logError(logger, path, err)
					continue
				case res.skipped:
					skipped++
				default:
					done++
				}
				mu.Unlock()

				if res.skipped {
					logger.Debug("frame already published", slog.String("file", path), slog.String("frame", res.name))
					continue
				}
				logger.Info("frame published",
					slog.String("file", path),
					slog.String("frame", res.name),
					slog.String("size", humanize.Bytes(uint64(res.size))))
			}
		}()
	}

loop:
	for _, path := range files {
		select {
		case filesCh <- path:
		case <-ctx.Done():
			break loop
		}
	}
	close(filesCh)
	wg.Wait()

	logger.Info("batch finished",
		slog.Int("published", done),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
		slog.Int("cachedPlans", pipe.planCache.Len()))

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 && done == 0 && skipped == 0 {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}

func logError(logger *slog.Logger, path string, err error) {
	var dataErr *goeserr.DataError
	var netErr *goeserr.NetworkError
	var encErr *goeserr.EncodingError

	switch {
	case errors.As(err, &dataErr):
		logger.Warn("dropping malformed scene", slog.String("file", path), slog.String("error", err.Error()))
	case errors.As(err, &netErr):
		logger.Warn("source fetch failed, caller may retry", slog.String("file", path), slog.String("error", err.Error()))
	case errors.As(err, &encErr):
		logger.Error("frame write failed", slog.String("file", path), slog.String("error", err.Error()))
	default:
		logger.Error("processing failed", slog.String("file", path), slog.String("error", err.Error()))
	}
}

// resampleOptions translates the configuration into resampler options.
func (c *Config) resampleOptions() resample.Options {
	return resample.Options{
		SearchRadius: *c.Processing.SearchRadius,
		Neighbours:   c.Processing.Neighbours,
	}
}
