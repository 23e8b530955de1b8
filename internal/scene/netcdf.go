package scene

import (
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/solarforecast/goes-viewer/internal/geo"
	"github.com/solarforecast/goes-viewer/internal/goeserr"
)

// TZ=UTC date --date="2000-01-01 12:00:00" +%s
// The GOES-R "t" coordinate counts seconds since this epoch.
const j2000UnixSecs = 946728000

// projectionVar carries the grid mapping attributes in L2 multi-band files.
const projectionVar = "goes_imager_projection"

// irRangeVar is the summary variable whose valid_range attribute documents
// the clean IR brightness temperature bounds.
const irRangeVar = "max_brightness_temperature_C13"

// Open reads one GOES L2 multi-band NetCDF file into a Scene. The pixel
// coordinates are converted from scan-angle radians into geostationary
// meters by scaling with the perspective height, matching the projection's
// linear units.
func Open(path string) (*Scene, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, goeserr.NewDataError("scene: opening %s: %s", path, err)
	}
	defer nc.Close()

	return load(nc)
}

func load(nc api.Group) (*Scene, error) {
	proj, err := readProjection(nc)
	if err != nil {
		return nil, err
	}

	platform, ok := attrString(nc.Attributes(), "platform_ID")
	if !ok || platform == "" {
		return nil, goeserr.NewDataError("scene: missing platform_ID attribute")
	}

	at, err := readTime(nc)
	if err != nil {
		return nil, err
	}

	x, err := readCoords(nc, "x", proj.PerspectiveHeight)
	if err != nil {
		return nil, err
	}
	y, err := readCoords(nc, "y", proj.PerspectiveHeight)
	if err != nil {
		return nil, err
	}

	s := Scene{
		Platform: platform,
		Time:     at,
		Proj:     proj,
		X:        x,
		Y:        y,
		channels: make(map[string]*Channel, len(RequiredChannels)),
	}

	for _, name := range RequiredChannels {
		ch, err := readChannel(nc, name)
		if err != nil {
			return nil, err
		}
		if ch.Rows != len(y) || ch.Cols != len(x) {
			return nil, goeserr.NewDataError("scene: channel %s shape (%d, %d) does not match grid (%d, %d)",
				name, ch.Rows, ch.Cols, len(y), len(x))
		}
		s.channels[name] = ch
	}

	if err := attachIRRange(nc, s.channels[ChannelCleanIR]); err != nil {
		return nil, err
	}
	return &s, nil
}

func readProjection(nc api.Group) (geo.GeosParams, error) {
	v, err := nc.GetVariable(projectionVar)
	if err != nil {
		return geo.GeosParams{}, goeserr.NewDataError("scene: missing %s: %s", projectionVar, err)
	}

	var p geo.GeosParams
	fields := []struct {
		attr string
		dst  *float64
	}{
		{"semi_major_axis", &p.SemiMajorAxis},
		{"semi_minor_axis", &p.SemiMinorAxis},
		{"inverse_flattening", &p.InverseFlattening},
		{"longitude_of_projection_origin", &p.LongitudeOrigin},
		{"perspective_point_height", &p.PerspectiveHeight},
	}
	for _, f := range fields {
		val, ok := attrFloat(v.Attributes, f.attr)
		if !ok {
			return geo.GeosParams{}, goeserr.NewDataError("scene: %s missing attribute %s", projectionVar, f.attr)
		}
		*f.dst = val
	}

	sweep, ok := attrString(v.Attributes, "sweep_angle_axis")
	if !ok {
		return geo.GeosParams{}, goeserr.NewDataError("scene: %s missing attribute sweep_angle_axis", projectionVar)
	}
	p.Sweep = sweep
	return p, nil
}

func readTime(nc api.Group) (time.Time, error) {
	v, err := nc.GetVariable("t")
	if err != nil {
		return time.Time{}, goeserr.NewDataError("scene: missing acquisition time: %s", err)
	}
	vals, ok := numsToFloat64(v.Values)
	if !ok || len(vals) == 0 {
		return time.Time{}, goeserr.NewDataError("scene: acquisition time has unexpected type %T", v.Values)
	}

	secs, frac := math.Modf(vals[0])
	return time.Unix(j2000UnixSecs+int64(secs), int64(frac*1e9)).UTC(), nil
}

func readCoords(nc api.Group, name string, height float64) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, goeserr.NewDataError("scene: missing %s coordinate: %s", name, err)
	}

	scale, hasScale := attrFloat(v.Attributes, "scale_factor")
	if !hasScale {
		scale = 1
	}
	offset, _ := attrFloat(v.Attributes, "add_offset")

	vals, ok := numsToFloat64(v.Values)
	if !ok {
		return nil, goeserr.NewDataError("scene: %s coordinate has unexpected type %T", name, v.Values)
	}
	if len(vals) == 0 {
		return nil, goeserr.NewDataError("scene: %s coordinate is empty", name)
	}

	out := make([]float64, len(vals))
	for i, raw := range vals {
		out[i] = (raw*scale + offset) * height
	}
	return out, nil
}

func readChannel(nc api.Group, name string) (*Channel, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, goeserr.NewDataError("scene: missing channel %s: %s", name, err)
	}

	scale, hasScale := attrFloat(v.Attributes, "scale_factor")
	if !hasScale {
		scale = 1
	}
	offset, _ := attrFloat(v.Attributes, "add_offset")
	fill, hasFill := attrFloat(v.Attributes, "_FillValue")

	data, rows, cols, err := gridToFloat32(v.Values, scale, offset, fill, hasFill)
	if err != nil {
		return nil, goeserr.NewDataError("scene: channel %s: %s", name, err)
	}

	return &Channel{Name: name, Rows: rows, Cols: cols, Data: data}, nil
}

func attachIRRange(nc api.Group, ch *Channel) error {
	v, err := nc.GetVariable(irRangeVar)
	if err != nil {
		return goeserr.NewDataError("scene: missing %s: %s", irRangeVar, err)
	}
	rng, ok := attrFloats(v.Attributes, "valid_range")
	if !ok || len(rng) != 2 {
		return goeserr.NewDataError("scene: %s has no usable valid_range", irRangeVar)
	}
	ch.ValidRange = [2]float64{rng[0], rng[1]}
	ch.HasValidRange = true
	return nil
}
