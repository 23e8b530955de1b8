package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/solarforecast/goes-viewer/internal/geocolor"
	"github.com/solarforecast/goes-viewer/internal/resample"
)

const (
	RegionAuto = ""
	RegionEast = "east"
	RegionWest = "west"
)

const (
	defaultFramesDir = "figs"
	defaultPixelSize = 2000.0 // output cell size in mercator meters
)

// Config represents the main application configuration
type Config struct {
	Settings   Settings   `yaml:"settings"`
	Processing Processing `yaml:"processing"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Processing represents the pipeline settings. Optional knobs are pointers
// so an explicit zero can be told apart from an absent key.
type Processing struct {
	FramesDir    string   `yaml:"framesDir"`
	CatalogDB    string   `yaml:"catalogDB"`
	Contrast     *int     `yaml:"contrast"`
	SearchRadius *float64 `yaml:"searchRadiusMeters"`
	Neighbours   int      `yaml:"neighbours"`
	PixelSizeX   float64  `yaml:"pixelSizeXMeters"`
	PixelSizeY   float64  `yaml:"pixelSizeYMeters"`
	Workers      int      `yaml:"workers"`
	Annotate     bool     `yaml:"annotate"`

	// Region overrides the per-platform coverage preset: "east" or "west".
	// Empty means resolve from the scene's platform ID.
	Region string `yaml:"region"`
}

// LoadConfig reads and validates a YAML configuration file, filling in
// defaults for absent keys.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	c.applyDefaults()
	if err = c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Processing.FramesDir == "" {
		c.Processing.FramesDir = defaultFramesDir
	}
	if c.Processing.CatalogDB == "" {
		c.Processing.CatalogDB = filepath.Join(c.Processing.FramesDir, "catalog.db")
	}
	if c.Processing.Contrast == nil {
		v := geocolor.DefaultContrast
		c.Processing.Contrast = &v
	}
	if c.Processing.SearchRadius == nil {
		v := resample.DefaultSearchRadius
		c.Processing.SearchRadius = &v
	}
	if c.Processing.Neighbours == 0 {
		c.Processing.Neighbours = resample.DefaultNeighbours
	}
	if c.Processing.PixelSizeX == 0 {
		c.Processing.PixelSizeX = defaultPixelSize
	}
	if c.Processing.PixelSizeY == 0 {
		c.Processing.PixelSizeY = defaultPixelSize
	}
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = runtime.NumCPU()
	}
}

func (c *Config) validate() error {
	p := &c.Processing
	switch {
	case *p.Contrast < 0 || *p.Contrast > 255:
		return fmt.Errorf("contrast %d out of range [0, 255]", *p.Contrast)
	case *p.SearchRadius < 0:
		return errors.New("search radius must not be negative")
	case p.Neighbours < 4:
		return fmt.Errorf("neighbours must be at least 4, got %d", p.Neighbours)
	case p.PixelSizeX <= 0 || p.PixelSizeY <= 0:
		return fmt.Errorf("pixel size must be positive, got (%g, %g)", p.PixelSizeX, p.PixelSizeY)
	case p.Region != RegionAuto && p.Region != RegionEast && p.Region != RegionWest:
		return fmt.Errorf("region must be %q or %q, got %q", RegionEast, RegionWest, p.Region)
	}

	if _, err := parseLogLevel(c.Settings.LogLevel); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the configured slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLogLevel(c.Settings.LogLevel)
	return level
}

func parseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
