package clusterkit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ValidatePoints checks that points is a rectangular matrix of finite values
// with at least two rows and one column.
func ValidatePoints(points [][]float64) error {
	if len(points) == 0 {
		return &InputError{Row: -1, Col: -1, Reason: "no points"}
	}
	if len(points) < 2 {
		return &InputError{Row: -1, Col: -1, Reason: "at least two points are required"}
	}
	dim := len(points[0])
	if dim < 1 {
		return &InputError{Row: 0, Col: -1, Reason: "points need at least one dimension"}
	}
	for i, row := range points {
		if len(row) != dim {
			return &InputError{Row: i, Col: -1, Reason: "ragged row"}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &InputError{Row: i, Col: j, Reason: "non-finite value"}
			}
		}
	}
	return nil
}

func validateCardinality(k, n int) error {
	if k < 2 || k > n {
		return &CardinalityError{K: k, N: n}
	}
	return nil
}

// toDense copies validated points into a row-major matrix.
func toDense(points [][]float64) *mat.Dense {
	n, dim := len(points), len(points[0])
	data := make([]float64, 0, n*dim)
	for _, row := range points {
		data = append(data, row...)
	}
	return mat.NewDense(n, dim, data)
}

func fromDense(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func fromSym(s mat.Symmetric) [][]float64 {
	n := s.SymmetricDim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = s.At(i, j)
		}
	}
	return out
}
