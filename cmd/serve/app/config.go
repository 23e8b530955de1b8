package app

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/solarforecast/goes-viewer/internal/sites"
)

const defaultTileURL = "https://basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png"

type Config struct {
	Listen    string
	FramesDir string
	CatalogDB string

	// Viewer page knobs.
	Title          string
	TileURL        string
	BaseHeight     int
	OverlayOpacity float64
	PollInterval   time.Duration

	// Site marker feed. Empty SitesURL disables the refresher.
	SitesURL     string
	SitesUser    string
	SitesPass    string
	SitesFilters sites.Filters
	SitesRefresh time.Duration

	Verbose bool
}

func NewConfig() *Config {
	return &Config{
		Listen:         ":8080",
		FramesDir:      "figs",
		Title:          "GOES GeoColor",
		TileURL:        defaultTileURL,
		BaseHeight:     800,
		OverlayOpacity: 0.8,
		PollInterval:   time.Minute,
		SitesRefresh:   15 * time.Minute,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var filters string
	flag.StringVar(&c.Listen, "listen", c.Listen, "Address to listen on")
	flag.StringVar(&c.FramesDir, "frames", c.FramesDir, "Directory holding published frames")
	flag.StringVar(&c.CatalogDB, "db", "", "Path to the catalog database (default <frames>/catalog.db)")
	flag.StringVar(&c.Title, "title", c.Title, "Viewer page title")
	flag.StringVar(&c.TileURL, "tiles", c.TileURL, "Base map tile URL template")
	flag.IntVar(&c.BaseHeight, "height", c.BaseHeight, "Base viewer height in pixels")
	flag.Float64Var(&c.OverlayOpacity, "opacity", c.OverlayOpacity, "Frame overlay opacity (0, 1]")
	flag.DurationVar(&c.PollInterval, "poll", c.PollInterval, "Viewer page frame list polling interval")
	flag.StringVar(&c.SitesURL, "sites-url", "", "Site metadata feed URL (empty disables markers)")
	flag.StringVar(&c.SitesUser, "sites-user", "", "Site feed Basic Auth username")
	flag.StringVar(&c.SitesPass, "sites-pass", "", "Site feed Basic Auth password")
	flag.StringVar(&filters, "sites-filter", "Type=ghi", "Site feed filters, Field=v1,v2 pairs separated by ';'")
	flag.DurationVar(&c.SitesRefresh, "sites-refresh", c.SitesRefresh, "Site marker refresh interval")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	if c.CatalogDB == "" {
		c.CatalogDB = filepath.Join(c.FramesDir, "catalog.db")
	}

	var err error
	if c.Listen == "" {
		err = errors.New("listen address is required")
	} else if c.OverlayOpacity <= 0 || c.OverlayOpacity > 1 {
		err = fmt.Errorf("overlay opacity %g out of range (0, 1]", c.OverlayOpacity)
	} else if c.BaseHeight <= 0 {
		err = fmt.Errorf("base height must be positive, got %d", c.BaseHeight)
	} else if c.PollInterval <= 0 {
		err = errors.New("poll interval must be positive")
	} else if c.SitesURL != "" && c.SitesRefresh <= 0 {
		err = errors.New("sites refresh interval must be positive")
	} else {
		c.SitesFilters, err = parseFilters(filters)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}

// parseFilters decodes "Field=v1,v2;Other=v3" into a filter map.
func parseFilters(s string) (sites.Filters, error) {
	f := make(sites.Filters)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		field, values, ok := strings.Cut(pair, "=")
		if !ok || field == "" || values == "" {
			return nil, fmt.Errorf("invalid sites filter %q, want Field=v1,v2", pair)
		}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f[field] = append(f[field], v)
			}
		}
	}
	return f, nil
}
