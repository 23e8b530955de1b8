package frame

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solarforecast/goes-viewer/internal/goeserr"
	"github.com/solarforecast/goes-viewer/internal/resample"
)

func TestFilenameRoundTrip(t *testing.T) {
	at := time.Date(2019, 8, 4, 18, 30, 45, 0, time.UTC)
	name := Filename("G16", at)
	if name != "G16_2019-08-04T18:30:45Z.png" {
		t.Fatalf("unexpected filename %q", name)
	}

	platform, parsed, err := ParseFilename(name)
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if platform != "G16" {
		t.Errorf("platform = %q, want G16", platform)
	}
	if !parsed.Equal(at) {
		t.Errorf("time = %v, want %v", parsed, at)
	}
}

func TestFilenameNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("MST", -7*3600)
	local := time.Date(2019, 8, 4, 11, 0, 0, 0, loc)
	if got := Filename("G17", local); got != "G17_2019-08-04T18:00:00Z.png" {
		t.Errorf("filename should encode UTC, got %q", got)
	}
}

func TestParseFilenameWithPath(t *testing.T) {
	platform, at, err := ParseFilename("figs/G17_2020-01-02T03:04:05Z.png")
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if platform != "G17" || at.Hour() != 3 {
		t.Errorf("got %q %v", platform, at)
	}
}

func TestParseFilenameErrors(t *testing.T) {
	bad := []string{
		"G16_2019-08-04T18:30:45Z.jpg",
		"metadata.json",
		"2019-08-04T18:30:45Z.png",
		"G16_not-a-time.png",
		"_2019-08-04T18:30:45Z.png",
	}
	for _, name := range bad {
		if _, _, err := ParseFilename(name); err == nil {
			t.Errorf("ParseFilename(%q) should fail", name)
		}
	}
}

func testRaster(rows, cols int) *resample.Raster {
	r := resample.Raster{Rows: rows, Cols: cols, Pix: make([]float64, 4*rows*cols)}
	for cell := 0; cell < rows*cols; cell++ {
		r.Pix[4*cell+0] = 0.5
		r.Pix[4*cell+1] = 0.25
		r.Pix[4*cell+2] = 1.0
		r.Pix[4*cell+3] = 1.0
	}
	return &r
}

func TestEncodeScaling(t *testing.T) {
	img := Encode(testRaster(2, 2))

	if got := img.Bounds().Dx(); got != 2 {
		t.Fatalf("width = %d, want 2", got)
	}
	// 0.5*255 truncates to 127, matching the source pipeline.
	if img.Pix[0] != 127 || img.Pix[1] != 63 || img.Pix[2] != 255 || img.Pix[3] != 255 {
		t.Errorf("unexpected first pixel %v", img.Pix[:4])
	}
}

func TestEncodeInvalidValues(t *testing.T) {
	r := testRaster(1, 3)
	nan := math.NaN()
	r.Pix[0], r.Pix[1], r.Pix[2], r.Pix[3] = nan, nan, nan, nan
	r.Pix[4] = math.Inf(1)
	r.Pix[8] = -0.5

	img := Encode(r)
	for i := 0; i < 4; i++ {
		if img.Pix[i] != 0 {
			t.Errorf("NaN cell byte %d = %d, want 0 (fully transparent)", i, img.Pix[i])
		}
	}
	if img.Pix[4] != 0 {
		t.Errorf("non-finite value should map to 0, got %d", img.Pix[4])
	}
	if img.Pix[8] != 0 {
		t.Errorf("negative value should clamp to 0, got %d", img.Pix[8])
	}
}

func TestEncodeAllInvalidRasterIsAllZero(t *testing.T) {
	r := resample.Raster{Rows: 3, Cols: 3, Pix: make([]float64, 36)}
	for i := range r.Pix {
		r.Pix[i] = math.NaN()
	}
	img := Encode(&r)
	for i, b := range img.Pix {
		if b != 0 {
			t.Fatalf("byte %d = %d, want all-zero raster", i, b)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := png.Encoder{CompressionLevel: png.BestCompression}

	var a, b bytes.Buffer
	if err := enc.Encode(&a, Encode(testRaster(4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Encode(&b, Encode(testRaster(4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("re-encoding the same raster must be byte-identical")
	}
}

func TestWritePublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Filename("G16", time.Date(2019, 8, 4, 18, 0, 0, 0, time.UTC)))

	if err := Write(path, Encode(testRaster(2, 2))); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening frame: %v", err)
	}
	defer f.Close()
	if _, err = png.Decode(f); err != nil {
		t.Errorf("written frame is not a valid png: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file %q left behind", e.Name())
		}
	}
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	err := Write(filepath.Join(dir, "G16_2019-08-04T18:00:00Z.png"), Encode(testRaster(1, 1)))
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	var encErr *goeserr.EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("expected EncodingError, got %T", err)
	}
}

func TestAnnotatorStamp(t *testing.T) {
	ann, err := NewAnnotator()
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	defer ann.Close()

	img := Encode(testRaster(40, 200))
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	if err = ann.Stamp(img, "G16 2019-08-04T18:00:00Z"); err != nil {
		t.Fatalf("Stamp: %v", err)
	}

	if bytes.Equal(before, img.Pix) {
		t.Error("stamp should modify the image")
	}
}

// One annotator is shared by all pipeline workers, each stamping its own
// frame. The race detector flags this test if stamps stop being serialized.
func TestAnnotatorConcurrentStamps(t *testing.T) {
	ann, err := NewAnnotator()
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	defer ann.Close()

	const workers = 16
	const stamps = 50

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < stamps; i++ {
				img := Encode(testRaster(40, 200))
				if err := ann.Stamp(img, "G16 2019-08-04T18:00:00Z"); err != nil {
					errs[w] = err
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		if err != nil {
			t.Errorf("worker %d: Stamp: %v", w, err)
		}
	}
}
