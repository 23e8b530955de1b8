package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/solarforecast/goes-viewer/cmd/process/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, inputDir string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&inputDir, "dir", "", "Directory of NetCDF source files to process")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	logLevel.Set(config.LogLevel())

	files, err := collectInputs(inputDir, flag.Args())
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger, files); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}

// collectInputs merges the -dir glob with files named on the command line,
// keeping the directory contents in name order so frames come out
// chronologically.
func collectInputs(dir string, args []string) ([]string, error) {
	var files []string
	if dir != "" {
		matches, err := filepath.Glob(filepath.Join(dir, "*.nc"))
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	files = append(files, args...)
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files: pass -dir or name files on the command line")
	}
	return files, nil
}
