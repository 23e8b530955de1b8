package scene

import "github.com/batchatco/go-native-netcdf/netcdf/api"

// NetCDF attribute values arrive as scalars or single-element slices of
// whatever width the writer chose. These helpers normalize both shapes.

func attrFloat(am api.AttributeMap, key string) (float64, bool) {
	vals, ok := attrFloats(am, key)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func attrFloats(am api.AttributeMap, key string) ([]float64, bool) {
	if am == nil {
		return nil, false
	}
	v, has := am.Get(key)
	if !has {
		return nil, false
	}
	return numsToFloat64(v)
}

func attrString(am api.AttributeMap, key string) (string, bool) {
	if am == nil {
		return "", false
	}
	v, has := am.Get(key)
	if !has {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		if len(t) > 0 {
			return t[0], true
		}
	case []byte:
		return string(t), true
	}
	return "", false
}

func numsToFloat64(v any) ([]float64, bool) {
	switch t := v.(type) {
	case float64:
		return []float64{t}, true
	case float32:
		return []float64{float64(t)}, true
	case int64:
		return []float64{float64(t)}, true
	case int32:
		return []float64{float64(t)}, true
	case int16:
		return []float64{float64(t)}, true
	case int8:
		return []float64{float64(t)}, true
	case uint8:
		return []float64{float64(t)}, true
	case uint16:
		return []float64{float64(t)}, true
	case uint32:
		return []float64{float64(t)}, true
	case []float64:
		return t, true
	case []float32:
		return convertSlice(t), true
	case []int64:
		return convertSlice(t), true
	case []int32:
		return convertSlice(t), true
	case []int16:
		return convertSlice(t), true
	case []int8:
		return convertSlice(t), true
	case []uint8:
		return convertSlice(t), true
	case []uint16:
		return convertSlice(t), true
	case []uint32:
		return convertSlice(t), true
	}
	return nil, false
}

func convertSlice[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | float32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
