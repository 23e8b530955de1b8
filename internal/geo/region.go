package geo

import (
	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Region is a geographic rectangle given by its southwest and northeast
// corners. Regions are independent of any particular scene and are reused
// across every frame from the same satellite.
type Region struct {
	SW Point
	NE Point
}

// Extent is an axis-aligned rectangle in a projected coordinate system,
// in meters.
type Extent struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the x span of the extent.
func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the y span of the extent.
func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

// Aspect is the x-span to y-span ratio, which fixes the display aspect of
// rasters rendered into this extent.
func (e Extent) Aspect() float64 {
	return e.Width() / e.Height()
}

// Coverage presets for the two GOES-R coverage areas. The regions frame the
// southwestern United States from either satellite's vantage point.
var (
	EastRegion = Region{SW: Point{Lon: -115, Lat: 28}, NE: Point{Lon: -102, Lat: 40}}
	WestRegion = Region{SW: Point{Lon: -125, Lat: 28}, NE: Point{Lon: -108, Lat: 42}}
)

// RegionForPlatform returns the coverage preset for a GOES platform ID.
func RegionForPlatform(platform string) (Region, error) {
	switch platform {
	case "G16", "G19":
		return EastRegion, nil
	case "G17", "G18":
		return WestRegion, nil
	}
	return Region{}, goeserr.NewDataError("geo: no coverage preset for platform %q", platform)
}

// ToGeos transforms the region's corners into the geostationary projection.
// Both corners must be visible from the satellite; a region outside the
// visible disk is a DataError.
func (r Region) ToGeos(g *Geos) (Extent, error) {
	x0, y0, ok := g.Forward(r.SW.Lon, r.SW.Lat)
	if !ok {
		return Extent{}, goeserr.NewDataError("geo: corner (%g, %g) not visible from satellite", r.SW.Lon, r.SW.Lat)
	}
	x1, y1, ok := g.Forward(r.NE.Lon, r.NE.Lat)
	if !ok {
		return Extent{}, goeserr.NewDataError("geo: corner (%g, %g) not visible from satellite", r.NE.Lon, r.NE.Lat)
	}
	return newExtent(x0, y0, x1, y1), nil
}

// ToMercator transforms the region's corners into Web Mercator meters.
func (r Region) ToMercator() Extent {
	x0, y0 := MercatorForward(r.SW.Lon, r.SW.Lat)
	x1, y1 := MercatorForward(r.NE.Lon, r.NE.Lat)
	return newExtent(x0, y0, x1, y1)
}

func newExtent(x0, y0, x1, y1 float64) Extent {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Extent{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}
