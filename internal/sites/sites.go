// Package sites pulls the sensor site list from the metadata API and
// prepares the marker overlay the viewer draws: filtered by sensor type,
// projected into Web Mercator, deduplicated.
package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

// Site is one marker in the output projection.
type Site struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Filters maps feed field names to the values accepted for them. A record
// matches when every filtered field carries one of its allowed values.
type Filters map[string][]string

type record struct {
	Name      string  `json:"Name"`
	Longitude float64 `json:"Longitude"`
	Latitude  float64 `json:"Latitude"`
	Type      string  `json:"Type"`
}

type feed struct {
	Metadata []record `json:"Metadata"`
}

// Client fetches and transforms the site metadata feed.
type Client struct {
	httpCli  *http.Client
	url      string
	username string
	password string
	filters  Filters
}

// NewClient creates a feed client. Credentials may be empty for feeds that
// do not require Basic Auth.
func NewClient(url string, filters Filters, username, password string) *Client {
	return &Client{
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		url:      url,
		filters:  filters,
		username: username,
		password: password,
	}
}

// Fetch retrieves the feed and returns the filtered, projected, deduplicated
// markers in first-seen order. Transport and status failures are
// NetworkErrors so the caller can retry on its own schedule.
func (c *Client) Fetch(ctx context.Context) ([]Site, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("sites: building request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.httpCli.Do(req)
	if err != nil {
		return nil, goeserr.NewNetworkError(err, "sites: fetching %s", c.url)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return nil, goeserr.NewNetworkError(nil, "sites: %s returned status %d", c.url, res.StatusCode)
	}

	var f feed
	if err = json.NewDecoder(res.Body).Decode(&f); err != nil {
		return nil, goeserr.NewDataError("sites: decoding feed: %s", err)
	}

	return transform(f.Metadata, c.filters), nil
}

func transform(recs []record, filters Filters) []Site {
	seen := make(map[Site]struct{})
	out := make([]Site, 0, len(recs))
	for _, rec := range recs {
		if !matches(rec, filters) {
			continue
		}

		x, y := geo.MercatorForward(rec.Longitude, rec.Latitude)
		s := Site{Name: rec.Name, X: x, Y: y}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func matches(rec record, filters Filters) bool {
	for field, allowed := range filters {
		val, ok := fieldValue(rec, field)
		if !ok {
			return false
		}
		found := false
		for _, a := range allowed {
			if val == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// fieldValue resolves the filterable string fields of a feed record.
func fieldValue(rec record, field string) (string, bool) {
	switch field {
	case "Name":
		return rec.Name, true
	case "Type":
		return rec.Type, true
	}
	return "", false
}

// WriteJSON publishes the marker list as a JSON file, going through a temp
// file so the viewer never sees a partial document.
func WriteJSON(path string, markers []Site) error {
	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("sites: marshaling markers: %w", err)
	}

	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return goeserr.NewEncodingError(err, "sites: creating temp file for %s", path)
	}

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "sites: writing %s", path)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "sites: flushing %s", path)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "sites: publishing %s", path)
	}
	return nil
}
