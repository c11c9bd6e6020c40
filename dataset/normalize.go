package dataset

import (
	"github.com/hupe1980/clusterkit"
	"gonum.org/v1/gonum/floats"
)

// NormalizeMax returns a copy of points with every column divided by its
// maximum. Columns whose maximum is not positive are copied unchanged.
func NormalizeMax(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0])

	maxes := make([]float64, dim)
	copy(maxes, points[0])
	for _, p := range points[1:] {
		for j, v := range p {
			if v > maxes[j] {
				maxes[j] = v
			}
		}
	}

	scale := make([]float64, dim)
	for j, m := range maxes {
		scale[j] = 1
		if m > 0 {
			scale[j] = 1 / m
		}
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, dim)
		floats.MulTo(row, p, scale)
		out[i] = row
	}
	return out
}

// Validate reports whether points can be clustered: at least two rows, a
// consistent non-zero width and only finite values. Errors match
// clusterkit.ErrMalformedInput.
func Validate(points [][]float64) error {
	return clusterkit.ValidatePoints(points)
}
