package frame

import (
	"fmt"
	"image"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	annotateDPI      = 72.0
	annotateFontSize = 14.0
	annotateMargin   = 8
)

// Annotator burns a short label, usually the acquisition timestamp, into the
// corner of a frame. Optional; the pipeline enables it per configuration.
// Safe for concurrent use: the freetype context is stateful, so stamps are
// serialized.
type Annotator struct {
	mu       sync.Mutex
	context  *freetype.Context
	fontFace font.Face
}

// NewAnnotator builds an annotator using the embedded Go Regular face.
func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(annotateDPI)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(annotateFontSize)
	ctx.SetHinting(font.HintingNone)

	return &Annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    annotateFontSize,
			DPI:     annotateDPI,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *Annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// Stamp draws the label in the bottom-left corner, white over a one-pixel
// black offset so it stays readable on bright cloud tops.
func (a *Annotator) Stamp(img *image.NRGBA, label string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	metrics := a.fontFace.Metrics()
	baseline := img.Bounds().Max.Y - annotateMargin - metrics.Descent.Round()

	a.context.SetSrc(image.Black)
	if _, err := a.context.DrawString(label, freetype.Pt(annotateMargin+1, baseline+1)); err != nil {
		return fmt.Errorf("drawing label shadow: %w", err)
	}

	a.context.SetSrc(image.White)
	if _, err := a.context.DrawString(label, freetype.Pt(annotateMargin, baseline)); err != nil {
		return fmt.Errorf("drawing label: %w", err)
	}
	return nil
}
