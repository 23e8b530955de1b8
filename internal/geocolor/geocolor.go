// Package geocolor composites GOES visible, near-infrared and clean IR
// channels into a true-color-like RGB image. The recipe is the CIMSS
// "GeoColor" daytime approximation: a synthesized green band, gamma
// correction, a cold-cloud IR overlay and a photographic contrast stretch.
package geocolor

import (
	"math"

	"github.com/solarforecast/goes-viewer/internal/goeserr"
	"github.com/solarforecast/goes-viewer/internal/scene"
)

// DefaultContrast is the contrast-stretch constant applied to the final
// composite. The usable range is 0-255.
const DefaultContrast = 105

const (
	gammaExp = 1 / 1.7

	// Scale-down applied to the inverted IR overlay so the coldest clouds
	// do not overpower the visible image.
	irDamping = 1.3
)

// Image is an in-memory float RGB raster with values in [0, 1]. Pixels where
// the source channels carried no data are NaN; the resampler and encoder
// deal with those downstream.
type Image struct {
	Rows int
	Cols int
	R    []float32
	G    []float32
	B    []float32
}

// Compose builds the GeoColor composite from a scene's four required
// channels. A missing channel, a missing IR valid range, or mismatched
// channel shapes fail with a DataError.
func Compose(s *scene.Scene, contrast int) (*Image, error) {
	if contrast < 0 || contrast > 255 {
		return nil, goeserr.NewDataError("geocolor: contrast %d out of range [0, 255]", contrast)
	}

	red, err := s.Channel(scene.ChannelRed)
	if err != nil {
		return nil, err
	}
	nir, err := s.Channel(scene.ChannelNIR)
	if err != nil {
		return nil, err
	}
	blue, err := s.Channel(scene.ChannelBlue)
	if err != nil {
		return nil, err
	}
	ir, err := s.Channel(scene.ChannelCleanIR)
	if err != nil {
		return nil, err
	}

	for _, ch := range []*scene.Channel{nir, blue, ir} {
		if ch.Rows != red.Rows || ch.Cols != red.Cols {
			return nil, goeserr.NewDataError("geocolor: channel %s shape (%d, %d) does not match %s (%d, %d)",
				ch.Name, ch.Rows, ch.Cols, red.Name, red.Rows, red.Cols)
		}
	}
	if !ir.HasValidRange {
		return nil, goeserr.NewDataError("geocolor: channel %s carries no valid range for the overlay", ir.Name)
	}
	irLo, irHi := ir.ValidRange[0], ir.ValidRange[1]
	if irHi <= irLo {
		return nil, goeserr.NewDataError("geocolor: degenerate IR valid range [%g, %g]", irLo, irHi)
	}

	f := 259 * (float64(contrast) + 255) / (255 * (259 - float64(contrast)))

	n := red.Rows * red.Cols
	img := Image{
		Rows: red.Rows,
		Cols: red.Cols,
		R:    make([]float32, n),
		G:    make([]float32, n),
		B:    make([]float32, n),
	}

	for i := 0; i < n; i++ {
		r := clip01(float64(red.Data[i]))
		ni := clip01(float64(nir.Data[i]))
		b := clip01(float64(blue.Data[i]))

		// "True" green synthesized from the veggie band.
		g := clip01(0.45*r + 0.10*ni + 0.45*b)

		r = math.Pow(r, gammaExp)
		g = math.Pow(g, gammaExp)
		b = math.Pow(b, gammaExp)

		// Normalize the brightness temperature and invert so colder
		// (higher) clouds get a stronger overlay.
		overlay := (1 - clip01((float64(ir.Data[i])-irLo)/(irHi-irLo))) / irDamping

		r = math.Max(r, overlay)
		g = math.Max(g, overlay)
		b = math.Max(b, overlay)

		img.R[i] = float32(clip01(f*(r-0.5) + 0.5))
		img.G[i] = float32(clip01(f*(g-0.5) + 0.5))
		img.B[i] = float32(clip01(f*(b-0.5) + 0.5))
	}
	return &img, nil
}

// Plane returns the channel plane by index (0=R, 1=G, 2=B).
func (img *Image) Plane(i int) []float32 {
	switch i {
	case 0:
		return img.R
	case 1:
		return img.G
	case 2:
		return img.B
	}
	return nil
}

// clip01 clamps to [0, 1]. NaN passes through untouched so invalid source
// pixels stay invalid.
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
