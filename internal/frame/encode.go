// Package frame turns resampled float rasters into the PNG frames the
// viewer polls for. Filenames encode the platform and acquisition time and
// are the frame's identity: the catalog deduplicates on them and the viewer
// parses the display timestamp back out.
package frame

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/solarforecast/goes-viewer/internal/goeserr"
	"github.com/solarforecast/goes-viewer/internal/resample"
)

// TimeLayout is the UTC timestamp format embedded in frame filenames.
const TimeLayout = "2006-01-02T15:04:05Z"

// Filename returns the canonical frame name for a platform and acquisition
// time, e.g. "G16_2019-08-04T18:00:00Z.png". Deterministic: the same pair
// always yields the same name.
func Filename(platform string, at time.Time) string {
	return fmt.Sprintf("%s_%s.png", platform, at.UTC().Format(TimeLayout))
}

// ParseFilename recovers the platform and acquisition time a frame name was
// built from.
func ParseFilename(name string) (platform string, at time.Time, err error) {
	base := filepath.Base(name)
	stem, ok := strings.CutSuffix(base, ".png")
	if !ok {
		return "", time.Time{}, fmt.Errorf("frame: %q is not a png frame name", name)
	}

	i := strings.LastIndex(stem, "_")
	if i <= 0 {
		return "", time.Time{}, fmt.Errorf("frame: %q has no platform prefix", name)
	}

	at, err = time.Parse(TimeLayout, stem[i+1:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("frame: parsing timestamp of %q: %w", name, err)
	}
	return stem[:i], at.UTC(), nil
}

// Encode converts a float RGBA raster into an 8-bit image. Non-finite values
// map to 0 before scaling, so cells the resampler marked invalid come out
// fully transparent.
func Encode(r *resample.Raster) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Cols, r.Rows))
	for i, v := range r.Pix {
		img.Pix[i] = toByte(v)
	}
	return img
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	if v > 0 {
		return uint8(v * 255)
	}
	return 0
}

// Write encodes img as a maximally compressed PNG at path, going through a
// temp file in the same directory so a failed write never leaves a partial
// frame in place.
func Write(path string, img image.Image) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return goeserr.NewEncodingError(err, "frame: creating temp file for %s", path)
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err = enc.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "frame: encoding %s", path)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "frame: flushing %s", path)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return goeserr.NewEncodingError(err, "frame: publishing %s", path)
	}
	return nil
}
