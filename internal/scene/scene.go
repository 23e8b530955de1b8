// Package scene loads GOES multi-channel imagery from NetCDF files and clips
// it to a projected bounding box. A Scene is immutable once loaded.
package scene

import (
	"math"
	"time"

	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

// Channel names of the calibrated bands the GeoColor composite needs.
const (
	ChannelBlue    = "CMI_C01" // visible reflectance, 0.47 um
	ChannelRed     = "CMI_C02" // visible reflectance, 0.64 um
	ChannelNIR     = "CMI_C03" // near-infrared "veggie" band, 0.86 um
	ChannelCleanIR = "CMI_C13" // clean longwave IR brightness temperature, 10.3 um
)

// RequiredChannels is the band set loaded for every scene.
var RequiredChannels = []string{ChannelBlue, ChannelRed, ChannelNIR, ChannelCleanIR}

// Channel is a single calibrated 2D band. Data is row-major with NaN marking
// fill pixels.
type Channel struct {
	Name string
	Rows int
	Cols int
	Data []float32

	// ValidRange is the documented calibrated range, present only for bands
	// whose metadata carries one (the clean IR overlay needs it).
	ValidRange    [2]float64
	HasValidRange bool
}

// At returns the value at (row, col).
func (c *Channel) At(row, col int) float32 {
	return c.Data[row*c.Cols+col]
}

// Scene is one satellite observation: projection metadata, projected pixel
// coordinates, and the calibrated channels.
type Scene struct {
	Platform string
	Time     time.Time
	Proj     geo.GeosParams

	// X and Y are the pixel center coordinates in geostationary meters,
	// in native storage order (X ascending west to east, Y descending
	// north to south).
	X []float64
	Y []float64

	channels map[string]*Channel
}

// New assembles a Scene from already-decoded parts. The channel grids must
// match the coordinate dimensions.
func New(platform string, at time.Time, proj geo.GeosParams, x, y []float64, channels ...*Channel) (*Scene, error) {
	s := Scene{
		Platform: platform,
		Time:     at,
		Proj:     proj,
		X:        x,
		Y:        y,
		channels: make(map[string]*Channel, len(channels)),
	}
	for _, ch := range channels {
		if ch.Rows != len(y) || ch.Cols != len(x) {
			return nil, goeserr.NewDataError("scene: channel %s shape (%d, %d) does not match grid (%d, %d)",
				ch.Name, ch.Rows, ch.Cols, len(y), len(x))
		}
		s.channels[ch.Name] = ch
	}
	return &s, nil
}

// Channel returns the named band or a DataError if the scene does not
// carry it.
func (s *Scene) Channel(name string) (*Channel, error) {
	if c, ok := s.channels[name]; ok {
		return c, nil
	}
	return nil, goeserr.NewDataError("scene: %s %s has no channel %s", s.Platform, s.Time.Format(time.RFC3339), name)
}

// Shape returns the (rows, cols) pixel grid dimensions.
func (s *Scene) Shape() (rows, cols int) {
	return len(s.Y), len(s.X)
}

// Subset clips the scene to the contiguous index ranges whose coordinate
// values fall inside the extent on each axis. Selection is by coordinate
// range membership, not nearest-neighbor snapping. An empty selection on
// either axis is a DataError: an empty scene cannot be composited.
// The receiver is not mutated.
func (s *Scene) Subset(extent geo.Extent) (*Scene, error) {
	cols := indexRange(s.X, extent.MinX, extent.MaxX)
	rows := indexRange(s.Y, extent.MinY, extent.MaxY)
	if len(cols) == 0 || len(rows) == 0 {
		return nil, goeserr.NewDataError("scene: bounding box [%g, %g]x[%g, %g] does not intersect scene extent",
			extent.MinX, extent.MaxX, extent.MinY, extent.MaxY)
	}

	out := Scene{
		Platform: s.Platform,
		Time:     s.Time,
		Proj:     s.Proj,
		X:        make([]float64, len(cols)),
		Y:        make([]float64, len(rows)),
		channels: make(map[string]*Channel, len(s.channels)),
	}
	for i, c := range cols {
		out.X[i] = s.X[c]
	}
	for i, r := range rows {
		out.Y[i] = s.Y[r]
	}

	for name, ch := range s.channels {
		sub := Channel{
			Name:          ch.Name,
			Rows:          len(rows),
			Cols:          len(cols),
			Data:          make([]float32, len(rows)*len(cols)),
			ValidRange:    ch.ValidRange,
			HasValidRange: ch.HasValidRange,
		}
		k := 0
		for _, r := range rows {
			base := r * ch.Cols
			for _, c := range cols {
				sub.Data[k] = ch.Data[base+c]
				k++
			}
		}
		out.channels[name] = &sub
	}
	return &out, nil
}

// indexRange returns the indices whose coordinate lies within [min, max].
// Coordinates are monotonic so the result is contiguous.
func indexRange(coords []float64, min, max float64) []int {
	idx := make([]int, 0, len(coords))
	for i, v := range coords {
		if v >= min && v <= max && !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	return idx
}
