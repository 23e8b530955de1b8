// Package geo implements the coordinate systems the pipeline moves imagery
// between: the geostationary perspective projection the satellite scans in,
// and the spherical Web Mercator grid the viewer displays in.
//
// Coordinate order is always (longitude, latitude) in and (x, y) out,
// regardless of axis conventions elsewhere.
package geo

import (
	"math"

	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

const (
	// SweepX is the GOES-R scan geometry, SweepY the Meteosat one.
	SweepX = "x"
	SweepY = "y"
)

// GeosParams are the geostationary projection parameters carried in the
// imagery metadata.
type GeosParams struct {
	SemiMajorAxis     float64 // meters
	SemiMinorAxis     float64 // meters
	InverseFlattening float64
	LongitudeOrigin   float64 // sub-satellite longitude, degrees
	PerspectiveHeight float64 // height above the ellipsoid, meters
	Sweep             string  // SweepX or SweepY
}

// Geos is a fully parameterized geostationary projection. Outputs are in
// meters, the scan angle scaled by the perspective height, which is the unit
// the imagery x/y coordinates use.
type Geos struct {
	params GeosParams

	lon0 float64 // radians

	// Precomputed terms, normalized to a unit semi-major axis.
	radiusP     float64 // b/a
	radiusP2    float64
	radiusPInv2 float64
	radiusG     float64 // 1 + h/a
	radiusG1    float64 // h/a
	flip        bool    // sweep along the x axis
}

// NewGeos validates the projection parameters and returns the projection.
// Missing or malformed parameters yield a DataError.
func NewGeos(p GeosParams) (*Geos, error) {
	switch {
	case p.SemiMajorAxis <= 0 || p.SemiMinorAxis <= 0:
		return nil, goeserr.NewDataError("geos: ellipsoid axes must be positive, got a=%g b=%g", p.SemiMajorAxis, p.SemiMinorAxis)
	case p.SemiMinorAxis > p.SemiMajorAxis:
		return nil, goeserr.NewDataError("geos: semi-minor axis %g exceeds semi-major %g", p.SemiMinorAxis, p.SemiMajorAxis)
	case p.PerspectiveHeight <= 0:
		return nil, goeserr.NewDataError("geos: perspective height must be positive, got %g", p.PerspectiveHeight)
	case p.LongitudeOrigin < -360 || p.LongitudeOrigin > 360:
		return nil, goeserr.NewDataError("geos: longitude of origin %g out of range", p.LongitudeOrigin)
	case p.InverseFlattening <= 0:
		return nil, goeserr.NewDataError("geos: inverse flattening must be positive, got %g", p.InverseFlattening)
	case p.Sweep != SweepX && p.Sweep != SweepY:
		return nil, goeserr.NewDataError("geos: sweep axis must be %q or %q, got %q", SweepX, SweepY, p.Sweep)
	}

	radiusP := p.SemiMinorAxis / p.SemiMajorAxis
	g := Geos{
		params:   p,
		lon0:     p.LongitudeOrigin * math.Pi / 180,
		radiusP:  radiusP,
		radiusP2: radiusP * radiusP,
		radiusG1: p.PerspectiveHeight / p.SemiMajorAxis,
		flip:     p.Sweep == SweepX,
	}
	g.radiusPInv2 = 1 / g.radiusP2
	g.radiusG = 1 + g.radiusG1
	return &g, nil
}

// Params returns the parameters the projection was built from.
func (g *Geos) Params() GeosParams {
	return g.params
}

// Forward transforms geographic (lon, lat) in degrees into projected (x, y)
// meters. The second return is false when the point is not visible from the
// satellite, in which case x and y are NaN.
func (g *Geos) Forward(lon, lat float64) (x, y float64, visible bool) {
	lam := wrapRadians(lon*math.Pi/180 - g.lon0)
	phi := math.Atan(g.radiusP2 * math.Tan(lat*math.Pi/180))

	r := g.radiusP / math.Hypot(g.radiusP*math.Cos(phi), math.Sin(phi))
	vx := r * math.Cos(lam) * math.Cos(phi)
	vy := r * math.Sin(lam) * math.Cos(phi)
	vz := r * math.Sin(phi)

	if (g.radiusG-vx)*vx-vy*vy-vz*vz*g.radiusPInv2 < 0 {
		return math.NaN(), math.NaN(), false
	}

	tmp := g.radiusG - vx
	if g.flip {
		x = g.radiusG1 * math.Atan(vy/math.Hypot(vz, tmp))
		y = g.radiusG1 * math.Atan(vz/tmp)
	} else {
		x = g.radiusG1 * math.Atan(vy/tmp)
		y = g.radiusG1 * math.Atan(vz/math.Hypot(vy, tmp))
	}
	return x * g.params.SemiMajorAxis, y * g.params.SemiMajorAxis, true
}

func wrapRadians(lam float64) float64 {
	for lam > math.Pi {
		lam -= 2 * math.Pi
	}
	for lam < -math.Pi {
		lam += 2 * math.Pi
	}
	return lam
}
