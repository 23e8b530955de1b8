package scene

import (
	"fmt"
	"math"
)

// gridToFloat32 flattens a 2D variable into a row-major float32 slice,
// applying the CF packed-data convention (value*scale + offset) and turning
// fill values into NaN.
func gridToFloat32(values any, scale, offset, fill float64, hasFill bool) (data []float32, rows, cols int, err error) {
	switch grid := values.(type) {
	case [][]int16:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	case [][]int32:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	case [][]uint16:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	case [][]uint8:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	case [][]float32:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	case [][]float64:
		return unpackGrid(grid, scale, offset, fill, hasFill)
	}
	return nil, 0, 0, fmt.Errorf("unsupported grid type %T", values)
}

func unpackGrid[T int16 | int32 | uint8 | uint16 | float32 | float64](grid [][]T, scale, offset, fill float64, hasFill bool) ([]float32, int, int, error) {
	rows := len(grid)
	if rows == 0 {
		return nil, 0, 0, fmt.Errorf("grid has zero rows")
	}
	cols := len(grid[0])
	if cols == 0 {
		return nil, 0, 0, fmt.Errorf("grid has zero columns")
	}

	data := make([]float32, rows*cols)
	k := 0
	for r, row := range grid {
		if len(row) != cols {
			return nil, 0, 0, fmt.Errorf("ragged grid: row %d has %d columns, want %d", r, len(row), cols)
		}
		for _, raw := range row {
			v := float64(raw)
			if (hasFill && v == fill) || math.IsNaN(v) {
				data[k] = float32(math.NaN())
			} else {
				data[k] = float32(v*scale + offset)
			}
			k++
		}
	}
	return data, rows, cols, nil
}
