package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solarforecast/goes-viewer/internal/catalog"
	"github.com/solarforecast/goes-viewer/internal/frame"
	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/geocolor"
	"github.com/solarforecast/goes-viewer/internal/resample"
	"github.com/solarforecast/goes-viewer/internal/scene"
)

// pipeline turns one NetCDF source file into one published frame. It is
// shared by all workers; the plan cache deduplicates the expensive geometry
// work across scenes with identical grids.
type pipeline struct {
	config    *Config
	store     catalog.Store
	planCache *resample.Cache
	annotator *frame.Annotator
}

// result describes what became of one source file.
type result struct {
	name    string
	skipped bool
	size    int64
}

func newPipeline(config *Config, store catalog.Store) (*pipeline, error) {
	p := pipeline{
		config:    config,
		store:     store,
		planCache: resample.NewCache(),
	}

	if config.Processing.Annotate {
		a, err := frame.NewAnnotator()
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		p.annotator = a
	}
	return &p, nil
}

func (p *pipeline) Close() error {
	if p.annotator != nil {
		return p.annotator.Close()
	}
	return nil
}

func (p *pipeline) processFile(ctx context.Context, path string) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, err
	}

	s, err := scene.Open(path)
	if err != nil {
		return result{}, err
	}

	name := frame.Filename(s.Platform, s.Time)
	known, err := p.store.HasFrame(ctx, name)
	if err != nil {
		return result{}, err
	}
	if known {
		return result{name: name, skipped: true}, nil
	}

	region, err := p.region(s.Platform)
	if err != nil {
		return result{}, err
	}

	proj, err := geo.NewGeos(s.Proj)
	if err != nil {
		return result{}, err
	}

	geosExtent, err := region.ToGeos(proj)
	if err != nil {
		return result{}, err
	}
	sub, err := s.Subset(geosExtent)
	if err != nil {
		return result{}, err
	}

	img, err := geocolor.Compose(sub, *p.config.Processing.Contrast)
	if err != nil {
		return result{}, err
	}

	dst, err := resample.NewTargetGrid(region.ToMercator(),
		p.config.Processing.PixelSizeX, p.config.Processing.PixelSizeY)
	if err != nil {
		return result{}, err
	}

	srcRows, srcCols := sub.Shape()
	key := resample.Key{
		Platform: s.Platform,
		SrcRows:  srcRows,
		SrcCols:  srcCols,
		Extent:   dst.Extent,
	}
	plan, err := p.planCache.Get(key, func() (*resample.Plan, error) {
		src := resample.SourceGrid{Proj: proj, X: sub.X, Y: sub.Y}
		return resample.NewPlan(src, dst, p.config.resampleOptions())
	})
	if err != nil {
		return result{}, err
	}

	raster, err := plan.Apply(img)
	if err != nil {
		return result{}, err
	}

	out := frame.Encode(raster)
	if p.annotator != nil {
		if err = p.annotator.Stamp(out, s.Time.UTC().Format(frame.TimeLayout)); err != nil {
			return result{}, err
		}
	}

	framePath := filepath.Join(p.config.Processing.FramesDir, name)
	if err = frame.Write(framePath, out); err != nil {
		return result{}, err
	}

	if _, err = p.store.AddFrame(ctx, s.Platform, s.Time, name); err != nil {
		return result{}, err
	}

	info, err := os.Stat(framePath)
	if err != nil {
		return result{}, fmt.Errorf("checking written frame: %w", err)
	}
	return result{name: name, size: info.Size()}, nil
}

// region resolves the coverage rectangle for a scene, honoring a configured
// override and otherwise following the platform preset.
func (p *pipeline) region(platform string) (geo.Region, error) {
	switch p.config.Processing.Region {
	case RegionEast:
		return geo.EastRegion, nil
	case RegionWest:
		return geo.WestRegion, nil
	}
	return geo.RegionForPlatform(platform)
}
