package geo

import "math"

// EarthRadius is the sphere radius used by Web Mercator (EPSG:3857),
// identical to the WGS84 semi-major axis.
const EarthRadius = 6378137.0

// maxMercatorLat is the latitude beyond which Web Mercator is undefined
// for practical purposes.
const maxMercatorLat = 85.06

// MercatorForward transforms geographic (lon, lat) degrees into Web Mercator
// (x, y) meters. Latitude is clamped to the projection's usable range.
func MercatorForward(lon, lat float64) (x, y float64) {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	} else if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}
	x = EarthRadius * lon * math.Pi / 180
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// MercatorInverse transforms Web Mercator (x, y) meters back into geographic
// (lon, lat) degrees.
func MercatorInverse(x, y float64) (lon, lat float64) {
	lon = x / EarthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}
