package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/solarforecast/goes-viewer/internal/catalog"
	"github.com/solarforecast/goes-viewer/internal/sites"
)

func testServer(t *testing.T) (*server, catalog.Store) {
	t.Helper()

	dir := t.TempDir()
	store := catalog.NewSqliteStore(filepath.Join(dir, "catalog.db"))
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	config := NewConfig()
	config.FramesDir = dir

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := newServer(config, store, logger, newMetrics())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return srv, store
}

func addFrames(t *testing.T, store catalog.Store, names ...string) {
	t.Helper()
	ctx := context.Background()
	for i, name := range names {
		at := time.Date(2019, 8, 4, 17+i, 0, 0, 0, time.UTC)
		if _, err := store.AddFrame(ctx, "G16", at, name); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}
}

func TestFrameListFeed(t *testing.T) {
	srv, store := testServer(t)
	addFrames(t, store,
		"G16_2019-08-04T17:00:00Z.png",
		"G16_2019-08-04T18:00:00Z.png",
		"G16_2019-08-04T19:00:00Z.png")

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/figs/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q, want application/json", ct)
	}

	var entries []frameEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Name != "G16_2019-08-04T17:00:00Z.png" || entries[2].Name != "G16_2019-08-04T19:00:00Z.png" {
		t.Errorf("entries not in chronological order: %+v", entries)
	}
}

func TestFrameFileServing(t *testing.T) {
	srv, _ := testServer(t)

	name := "G16_2019-08-04T18:00:00Z.png"
	payload := []byte("fake png bytes")
	if err := os.WriteFile(filepath.Join(srv.config.FramesDir, name), payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/figs/"+name, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if rec.Body.String() != string(payload) {
		t.Error("served body does not match file contents")
	}
}

func TestFrameFileRejectsTraversal(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/figs/..%2Fcatalog.db", "/figs/.hidden", "/figs/catalog.db"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.routes().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, rec.Code)
		}
	}
}

func TestIndexPage(t *testing.T) {
	srv, _ := testServer(t)
	srv.config.Title = "Southwest GeoColor"

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Southwest GeoColor") {
		t.Error("page does not carry the configured title")
	}
	if !strings.Contains(body, "G16") || !strings.Contains(body, "G18") {
		t.Error("page does not embed the platform coverage bounds")
	}

	// Frames poll every minute; markers follow the slower refresh interval.
	if !strings.Contains(body, "var pollMs = 60000") {
		t.Error("page does not carry the frame polling interval")
	}
	if !strings.Contains(body, "var markersPollMs = 900000") {
		t.Error("page does not carry the marker polling interval")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, store := testServer(t)
	addFrames(t, store, "G16_2019-08-04T18:00:00Z.png")

	// Hit the feed once so the request counter and frame gauge move.
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/figs/", nil))

	rec = httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "viewer_requests_total") {
		t.Error("metrics output missing request counter")
	}
	if !strings.Contains(body, "viewer_catalog_frames 1") {
		t.Error("metrics output missing catalog frame gauge")
	}
}

func TestRefreshSitesWritesMetadata(t *testing.T) {
	srv, _ := testServer(t)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Metadata": [{"Name": "Tucson Plant", "Longitude": -110.95, "Latitude": 32.23, "Type": "ghi"}]}`))
	}))
	defer feed.Close()

	client := sites.NewClient(feed.URL, sites.Filters{"Type": {"ghi"}}, "", "")
	if err := srv.refreshSites(context.Background(), client); err != nil {
		t.Fatalf("refreshSites: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(srv.config.FramesDir, "metadata.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var markers []sites.Site
	if err = json.Unmarshal(data, &markers); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(markers) != 1 || markers[0].Name != "Tucson Plant" {
		t.Errorf("unexpected markers: %+v", markers)
	}
}

func TestParseFilters(t *testing.T) {
	f, err := parseFilters("Type=ghi,dni;Name=Tucson Plant")
	if err != nil {
		t.Fatalf("parseFilters: %v", err)
	}
	if len(f["Type"]) != 2 || f["Type"][0] != "ghi" || f["Type"][1] != "dni" {
		t.Errorf("Type filter %v, want [ghi dni]", f["Type"])
	}
	if len(f["Name"]) != 1 || f["Name"][0] != "Tucson Plant" {
		t.Errorf("Name filter %v", f["Name"])
	}

	if _, err = parseFilters("Type"); err == nil {
		t.Error("expected error for filter without values")
	}
}
