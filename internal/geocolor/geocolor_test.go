package geocolor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
	"github.com/solarforecast/goes-viewer/internal/scene"
)

func uniformChannel(name string, rows, cols int, v float64) *scene.Channel {
	ch := scene.Channel{Name: name, Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
	for i := range ch.Data {
		ch.Data[i] = float32(v)
	}
	return &ch
}

func irChannel(rows, cols int, v, lo, hi float64) *scene.Channel {
	ch := uniformChannel(scene.ChannelCleanIR, rows, cols, v)
	ch.ValidRange = [2]float64{lo, hi}
	ch.HasValidRange = true
	return ch
}

func buildScene(t *testing.T, chans ...*scene.Channel) *scene.Scene {
	t.Helper()

	rows, cols := chans[0].Rows, chans[0].Cols
	x := make([]float64, cols)
	y := make([]float64, rows)
	for i := range x {
		x[i] = float64(i) * 2000
	}
	for i := range y {
		y[i] = float64(rows-i) * 2000
	}
	s, err := scene.New("G16", time.Date(2019, 8, 4, 18, 0, 0, 0, time.UTC), geo.GeosParams{
		SemiMajorAxis:     6378137,
		SemiMinorAxis:     6356752.31414,
		InverseFlattening: 298.2572221,
		LongitudeOrigin:   -75,
		PerspectiveHeight: 35786023,
		Sweep:             geo.SweepX,
	}, x, y, chans...)
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	return s
}

func TestComposeGreenSynthesisScenario(t *testing.T) {
	// R=0.2, NIR=0.3, B=0.1 uniformly, thermal at the warm end of its valid
	// range so the overlay contributes nothing.
	const lo, hi = 193.15, 303.15
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 2, 3, 0.2),
		uniformChannel(scene.ChannelNIR, 2, 3, 0.3),
		uniformChannel(scene.ChannelBlue, 2, 3, 0.1),
		irChannel(2, 3, hi, lo, hi),
	)

	img, err := Compose(s, DefaultContrast)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	// Green before gamma: 0.45*0.2 + 0.10*0.3 + 0.45*0.1 = 0.165.
	// The final value differs from the gamma-corrected one by the
	// F-scaling of the contrast stretch only.
	f := 259 * (105.0 + 255) / (255 * (259 - 105.0))
	wantG := f*(math.Pow(0.165, 1/1.7)-0.5) + 0.5
	wantR := f*(math.Pow(0.2, 1/1.7)-0.5) + 0.5
	wantB := f*(math.Pow(0.1, 1/1.7)-0.5) + 0.5
	if wantB < 0 {
		wantB = 0
	}

	for i := range img.G {
		if math.Abs(float64(img.G[i])-wantG) > 1e-6 {
			t.Fatalf("G[%d] = %g, want %g", i, img.G[i], wantG)
		}
		if math.Abs(float64(img.R[i])-wantR) > 1e-6 {
			t.Fatalf("R[%d] = %g, want %g", i, img.R[i], wantR)
		}
		if math.Abs(float64(img.B[i])-wantB) > 1e-6 {
			t.Fatalf("B[%d] = %g, want %g", i, img.B[i], wantB)
		}
	}
}

func TestComposeRangeInvariant(t *testing.T) {
	// Inputs deliberately outside [0, 1] in both directions.
	vals := []float64{-0.5, 0, 0.25, 0.5, 0.75, 1, 1.5}
	const lo, hi = 193.15, 303.15

	for _, r := range vals {
		for _, b := range vals {
			s := buildScene(t,
				uniformChannel(scene.ChannelRed, 1, 1, r),
				uniformChannel(scene.ChannelNIR, 1, 1, b),
				uniformChannel(scene.ChannelBlue, 1, 1, b),
				irChannel(1, 1, 150, lo, hi), // colder than the valid range
			)
			img, err := Compose(s, DefaultContrast)
			if err != nil {
				t.Fatalf("Compose(r=%g, b=%g): %v", r, b, err)
			}
			for _, plane := range [][]float32{img.R, img.G, img.B} {
				v := float64(plane[0])
				if v < 0 || v > 1 {
					t.Errorf("output %g out of [0, 1] for r=%g b=%g", v, r, b)
				}
			}
		}
	}
}

func TestComposeColdCloudOverlay(t *testing.T) {
	const lo, hi = 193.15, 303.15
	// Black visible channels, thermal at the cold end: the overlay alone
	// sets the brightness, at 1/1.3 before the stretch.
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 1, 1, 0),
		uniformChannel(scene.ChannelNIR, 1, 1, 0),
		uniformChannel(scene.ChannelBlue, 1, 1, 0),
		irChannel(1, 1, lo, lo, hi),
	)

	img, err := Compose(s, DefaultContrast)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	f := 259 * (105.0 + 255) / (255 * (259 - 105.0))
	want := clip01(f*(1/1.3-0.5) + 0.5)
	for _, plane := range [][]float32{img.R, img.G, img.B} {
		if math.Abs(float64(plane[0])-want) > 1e-6 {
			t.Errorf("overlay value %g, want %g", plane[0], want)
		}
	}
}

func TestComposeZeroContrastIsIdentityScaling(t *testing.T) {
	const lo, hi = 193.15, 303.15
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 1, 1, 0.5),
		uniformChannel(scene.ChannelNIR, 1, 1, 0.5),
		uniformChannel(scene.ChannelBlue, 1, 1, 0.5),
		irChannel(1, 1, hi, lo, hi),
	)

	// contrast=0 gives F=1, so the stretch is a no-op.
	img, err := Compose(s, 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := math.Pow(0.5, 1/1.7)
	if math.Abs(float64(img.R[0])-want) > 1e-6 {
		t.Errorf("R = %g, want gamma-corrected %g", img.R[0], want)
	}
}

func TestComposeNaNPassesThrough(t *testing.T) {
	const lo, hi = 193.15, 303.15
	red := uniformChannel(scene.ChannelRed, 1, 2, 0.2)
	red.Data[1] = float32(math.NaN())
	s := buildScene(t,
		red,
		uniformChannel(scene.ChannelNIR, 1, 2, 0.3),
		uniformChannel(scene.ChannelBlue, 1, 2, 0.1),
		irChannel(1, 2, hi, lo, hi),
	)

	img, err := Compose(s, DefaultContrast)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if math.IsNaN(float64(img.R[0])) {
		t.Error("valid pixel should not be NaN")
	}
	if !math.IsNaN(float64(img.R[1])) {
		t.Error("invalid pixel should stay NaN for the resampler to handle")
	}
}

func TestComposeMissingChannel(t *testing.T) {
	const lo, hi = 193.15, 303.15
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 1, 1, 0.2),
		uniformChannel(scene.ChannelNIR, 1, 1, 0.3),
		irChannel(1, 1, hi, lo, hi),
	)

	_, err := Compose(s, DefaultContrast)
	if err == nil {
		t.Fatal("expected DataError for missing blue channel")
	}
	var dataErr *goeserr.DataError
	if !errors.As(err, &dataErr) {
		t.Errorf("expected DataError, got %T", err)
	}
}

func TestComposeMissingIRRange(t *testing.T) {
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 1, 1, 0.2),
		uniformChannel(scene.ChannelNIR, 1, 1, 0.3),
		uniformChannel(scene.ChannelBlue, 1, 1, 0.1),
		uniformChannel(scene.ChannelCleanIR, 1, 1, 250),
	)

	_, err := Compose(s, DefaultContrast)
	if err == nil {
		t.Fatal("expected DataError for missing IR valid range")
	}
	var dataErr *goeserr.DataError
	if !errors.As(err, &dataErr) {
		t.Errorf("expected DataError, got %T", err)
	}
}

func TestComposeContrastOutOfRange(t *testing.T) {
	s := buildScene(t,
		uniformChannel(scene.ChannelRed, 1, 1, 0.2),
		uniformChannel(scene.ChannelNIR, 1, 1, 0.3),
		uniformChannel(scene.ChannelBlue, 1, 1, 0.1),
		irChannel(1, 1, 250, 193.15, 303.15),
	)
	for _, contrast := range []int{256, -1} {
		_, err := Compose(s, contrast)
		if err == nil {
			t.Errorf("expected error for contrast %d", contrast)
			continue
		}
		var dataErr *goeserr.DataError
		if !errors.As(err, &dataErr) {
			t.Errorf("contrast %d: expected DataError, got %T", contrast, err)
		}
	}
}
