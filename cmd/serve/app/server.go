package app

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/solarforecast/goes-viewer/internal/catalog"
	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/sites"
)

//go:embed index.html
var pageFS embed.FS

// server is the viewer-facing HTTP surface: the embedded page, the frame
// catalog feed, the frame files themselves, and metrics.
type server struct {
	config  *Config
	store   catalog.Store
	logger  *slog.Logger
	metrics *metrics
	page    *template.Template
}

func newServer(config *Config, store catalog.Store, logger *slog.Logger, m *metrics) (*server, error) {
	page, err := template.ParseFS(pageFS, "index.html")
	if err != nil {
		return nil, err
	}
	return &server{
		config:  config,
		store:   store,
		logger:  logger,
		metrics: m,
		page:    page,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /figs/{$}", s.handleFrameList)
	mux.HandleFunc("GET /figs/{name}", s.handleFrameFile)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// pageData is everything the embedded viewer page needs to run: where to poll
// for frames, how to draw the base map, and the coverage bounds to pin each
// platform's overlay to.
type pageData struct {
	Title   string
	TileURL string
	Height  int
	Opacity float64
	Regions template.JS

	// Frames are polled frequently; markers only change when the server
	// refreshes them, so the page follows that slower cadence.
	PollMs        int64
	MarkersPollMs int64
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.metrics.Requests.WithLabelValues("index").Inc()

	regions, err := json.Marshal(platformBounds())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.page.Execute(w, pageData{
		Title:   s.config.Title,
		TileURL: s.config.TileURL,
		Height:  s.config.BaseHeight,
		Opacity: s.config.OverlayOpacity,
		Regions: template.JS(regions),

		PollMs:        s.config.PollInterval.Milliseconds(),
		MarkersPollMs: s.config.SitesRefresh.Milliseconds(),
	})
	if err != nil {
		s.logger.Error("rendering viewer page", slog.String("error", err.Error()))
	}
}

// platformBounds maps platform IDs to [[south, west], [north, east]] overlay
// corners in degrees, the corner order map libraries expect.
func platformBounds() map[string][2][2]float64 {
	bounds := make(map[string][2][2]float64)
	for _, platform := range []string{"G16", "G17", "G18", "G19"} {
		region, err := geo.RegionForPlatform(platform)
		if err != nil {
			continue
		}
		bounds[platform] = [2][2]float64{
			{region.SW.Lat, region.SW.Lon},
			{region.NE.Lat, region.NE.Lon},
		}
	}
	return bounds
}

// frameEntry is one element of the catalog feed.
type frameEntry struct {
	Name string `json:"name"`
}

func (s *server) handleFrameList(w http.ResponseWriter, r *http.Request) {
	s.metrics.Requests.WithLabelValues("frames").Inc()

	frames, err := s.store.Frames(r.Context())
	if err != nil {
		s.logger.Error("listing frames", slog.String("error", err.Error()))
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	s.metrics.CatalogFrames.Set(float64(len(frames)))

	entries := make([]frameEntry, 0, len(frames))
	for _, f := range frames {
		if !strings.HasSuffix(f.Name, ".png") {
			continue
		}
		entries = append(entries, frameEntry{Name: f.Name})
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Error("encoding frame list", slog.String("error", err.Error()))
	}
}

func (s *server) handleFrameFile(w http.ResponseWriter, r *http.Request) {
	s.metrics.Requests.WithLabelValues("frame").Inc()

	name := r.PathValue("name")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	// Only the published artifacts are reachable; the catalog database lives
	// in the same directory.
	if !strings.HasSuffix(name, ".png") && name != "metadata.json" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.config.FramesDir, name))
}

// refreshSites pulls the marker feed once and publishes metadata.json next to
// the frames.
func (s *server) refreshSites(ctx context.Context, client *sites.Client) error {
	s.metrics.SitesRefreshes.Inc()

	markers, err := client.Fetch(ctx)
	if err != nil {
		s.metrics.SitesRefreshErrors.Inc()
		return err
	}
	if err = sites.WriteJSON(filepath.Join(s.config.FramesDir, "metadata.json"), markers); err != nil {
		s.metrics.SitesRefreshErrors.Inc()
		return err
	}

	s.logger.Debug("site markers refreshed", slog.Int("markers", len(markers)))
	return nil
}
