// Package resample remaps composited satellite rasters from the
// geostationary pixel grid onto a Web Mercator target grid. The expensive
// geometry work is done once per (source grid, target extent) pair and
// captured in a Plan; applying a Plan to an image is a cheap weighted sum.
package resample

import (
	"math"

	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/geocolor"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

const (
	// DefaultSearchRadius is the maximum ground distance, in meters,
	// between a target cell center and its nearest source sample.
	DefaultSearchRadius = 6000.0

	// DefaultNeighbours bounds the candidate source samples considered per
	// target cell. Bilinear interpolation needs the four enclosing samples,
	// so values below four are rejected.
	DefaultNeighbours = 8
)

// Options tune the plan construction. The zero value is taken literally;
// use DefaultOptions for the standard configuration.
type Options struct {
	SearchRadius float64
	Neighbours   int
}

// DefaultOptions returns the standard resampling options.
func DefaultOptions() Options {
	return Options{SearchRadius: DefaultSearchRadius, Neighbours: DefaultNeighbours}
}

// SourceGrid describes the geostationary pixel grid a plan resamples from.
type SourceGrid struct {
	Proj *geo.Geos
	X    []float64 // pixel center x coordinates, meters, uniform spacing
	Y    []float64 // pixel center y coordinates, meters, uniform spacing
}

// TargetGrid describes the Web Mercator raster a plan resamples onto.
type TargetGrid struct {
	Extent geo.Extent
	Rows   int
	Cols   int
}

// NewTargetGrid sizes a target raster by dividing the extent into cells of
// (dx, dy) meters, the way the output resolution is configured.
func NewTargetGrid(extent geo.Extent, dx, dy float64) (TargetGrid, error) {
	if dx <= 0 || dy <= 0 {
		return TargetGrid{}, goeserr.NewDataError("resample: target cell size must be positive, got (%g, %g)", dx, dy)
	}
	cols := int(extent.Width() / dx)
	rows := int(extent.Height() / dy)
	if cols <= 0 || rows <= 0 {
		return TargetGrid{}, goeserr.NewDataError("resample: extent %+v too small for cell size (%g, %g)", extent, dx, dy)
	}
	return TargetGrid{Extent: extent, Rows: rows, Cols: cols}, nil
}

// Raster is a float RGBA raster, row-major with four values per cell.
// Values are in [0, 1]; cells the plan marked invalid are NaN in all four
// channels and become fully transparent at the encoding stage.
type Raster struct {
	Rows int
	Cols int
	Pix  []float64
}

// Plan holds precomputed bilinear neighbor indices and weights for every
// target cell. A Plan is valid only for the (source shape, source
// projection, target extent) triple it was built for, and is safe for
// concurrent use once built.
type Plan struct {
	srcRows int
	srcCols int
	rows    int
	cols    int

	// Four source indices and weights per target cell; idx[4k] < 0 marks a
	// cell with no contributing source sample.
	idx []int32
	wgt []float64
}

// NewPlan computes the remapping from src onto dst. Each target cell center
// is projected into the source grid; cells whose nearest source sample lies
// beyond the search radius, or which fall outside the grid, are marked
// invalid.
func NewPlan(src SourceGrid, dst TargetGrid, opts Options) (*Plan, error) {
	if src.Proj == nil {
		return nil, goeserr.NewDataError("resample: source projection is required")
	}
	if len(src.X) < 2 || len(src.Y) < 2 {
		return nil, goeserr.NewDataError("resample: source grid %dx%d too small", len(src.Y), len(src.X))
	}
	if opts.Neighbours < 4 {
		return nil, goeserr.NewDataError("resample: %d neighbours cannot form a bilinear quad", opts.Neighbours)
	}
	if opts.SearchRadius < 0 {
		return nil, goeserr.NewDataError("resample: negative search radius %g", opts.SearchRadius)
	}

	srcCols, srcRows := len(src.X), len(src.Y)
	dx := (src.X[srcCols-1] - src.X[0]) / float64(srcCols-1)
	dy := (src.Y[srcRows-1] - src.Y[0]) / float64(srcRows-1)
	if dx == 0 || dy == 0 {
		return nil, goeserr.NewDataError("resample: degenerate source pixel spacing (%g, %g)", dx, dy)
	}

	p := Plan{
		srcRows: srcRows,
		srcCols: srcCols,
		rows:    dst.Rows,
		cols:    dst.Cols,
		idx:     make([]int32, 4*dst.Rows*dst.Cols),
		wgt:     make([]float64, 4*dst.Rows*dst.Cols),
	}

	cellW := dst.Extent.Width() / float64(dst.Cols)
	cellH := dst.Extent.Height() / float64(dst.Rows)

	k := 0
	for r := 0; r < dst.Rows; r++ {
		// Row 0 is the northern edge of the extent.
		my := dst.Extent.MaxY - (float64(r)+0.5)*cellH
		for c := 0; c < dst.Cols; c++ {
			mx := dst.Extent.MinX + (float64(c)+0.5)*cellW

			lon, lat := geo.MercatorInverse(mx, my)
			gx, gy, visible := src.Proj.Forward(lon, lat)
			if !visible {
				p.markInvalid(k)
				k += 4
				continue
			}

			u := (gx - src.X[0]) / dx
			v := (gy - src.Y[0]) / dy
			i0 := int(math.Floor(u))
			j0 := int(math.Floor(v))
			// A projection landing exactly on the last column or row
			// coincides with the final source sample; fold it into the
			// last quad instead of rejecting it.
			if i0 == srcCols-1 && u == float64(i0) {
				i0--
			}
			if j0 == srcRows-1 && v == float64(j0) {
				j0--
			}
			if i0 < 0 || i0 > srcCols-2 || j0 < 0 || j0 > srcRows-2 {
				p.markInvalid(k)
				k += 4
				continue
			}

			// Ground distance to the nearest source sample.
			du := (u - math.Round(u)) * dx
			dv := (v - math.Round(v)) * dy
			if math.Hypot(du, dv) > opts.SearchRadius {
				p.markInvalid(k)
				k += 4
				continue
			}

			fu := u - float64(i0)
			fv := v - float64(j0)
			base := j0*srcCols + i0
			p.idx[k+0] = int32(base)
			p.idx[k+1] = int32(base + 1)
			p.idx[k+2] = int32(base + srcCols)
			p.idx[k+3] = int32(base + srcCols + 1)
			p.wgt[k+0] = (1 - fu) * (1 - fv)
			p.wgt[k+1] = fu * (1 - fv)
			p.wgt[k+2] = (1 - fu) * fv
			p.wgt[k+3] = fu * fv
			k += 4
		}
	}
	return &p, nil
}

func (p *Plan) markInvalid(k int) {
	p.idx[k] = -1
}

// Shape returns the target raster dimensions the plan produces.
func (p *Plan) Shape() (rows, cols int) {
	return p.rows, p.cols
}

// SourceShape returns the source grid dimensions the plan was built for.
func (p *Plan) SourceShape() (rows, cols int) {
	return p.srcRows, p.srcCols
}

// Apply remaps a composite image through the plan. The image shape must
// match the plan's source shape; anything else fails fast with a DataError.
// Cells with no contributing source sample, and cells whose interpolation
// touches an invalid source pixel, come back NaN in all four channels.
func (p *Plan) Apply(img *geocolor.Image) (*Raster, error) {
	if img.Rows != p.srcRows || img.Cols != p.srcCols {
		return nil, goeserr.NewDataError("resample: image shape (%d, %d) does not match plan source (%d, %d)",
			img.Rows, img.Cols, p.srcRows, p.srcCols)
	}

	out := Raster{
		Rows: p.rows,
		Cols: p.cols,
		Pix:  make([]float64, 4*p.rows*p.cols),
	}

	nan := math.NaN()
	for cell := 0; cell < p.rows*p.cols; cell++ {
		k := 4 * cell
		if p.idx[k] < 0 {
			out.Pix[k+0] = nan
			out.Pix[k+1] = nan
			out.Pix[k+2] = nan
			out.Pix[k+3] = nan
			continue
		}

		var rgb [3]float64
		for plane := 0; plane < 3; plane++ {
			data := img.Plane(plane)
			rgb[plane] = p.wgt[k+0]*float64(data[p.idx[k+0]]) +
				p.wgt[k+1]*float64(data[p.idx[k+1]]) +
				p.wgt[k+2]*float64(data[p.idx[k+2]]) +
				p.wgt[k+3]*float64(data[p.idx[k+3]])
		}

		if math.IsNaN(rgb[0]) || math.IsNaN(rgb[1]) || math.IsNaN(rgb[2]) {
			out.Pix[k+0] = nan
			out.Pix[k+1] = nan
			out.Pix[k+2] = nan
			out.Pix[k+3] = nan
			continue
		}

		out.Pix[k+0] = rgb[0]
		out.Pix[k+1] = rgb[1]
		out.Pix[k+2] = rgb[2]
		out.Pix[k+3] = 1
	}
	return &out, nil
}
