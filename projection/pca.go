// Package projection reduces point matrices to a few dimensions for display.
package projection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidComponents is returned when the requested number of
	// components is not in [1, min(rows, cols)].
	ErrInvalidComponents = errors.New("projection: invalid component count")
	// ErrDecomposition is returned when the SVD does not converge.
	ErrDecomposition = errors.New("projection: decomposition failed")
)

// Model is a fitted principal component projection.
type Model struct {
	// Mean is the column mean subtracted before projecting.
	Mean []float64
	// Components is the d×k matrix of principal axes, one per column.
	Components *mat.Dense
	// Variances holds the variance explained by each kept component.
	Variances []float64
}

// Fit computes the leading principal axes of points. Each axis is oriented
// so that its largest-magnitude loading is positive, which makes the
// projection deterministic.
func Fit(points [][]float64, components int) (*Model, error) {
	n := len(points)
	if n == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidComponents)
	}
	d := len(points[0])
	if components < 1 || components > min(n, d) {
		return nil, fmt.Errorf("%w: %d for a %dx%d matrix", ErrInvalidComponents, components, n, d)
	}

	x := mat.NewDense(n, d, nil)
	for i, p := range points {
		x.SetRow(i, p)
	}

	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, ErrDecomposition
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	axes := mat.DenseCopyOf(vecs.Slice(0, d, 0, components))

	for j := 0; j < components; j++ {
		col := mat.Col(nil, j, axes)
		best := 0
		for i, v := range col {
			if math.Abs(v) > math.Abs(col[best]) {
				best = i
			}
		}
		if col[best] < 0 {
			for i := range col {
				axes.Set(i, j, -col[i])
			}
		}
	}

	mean := make([]float64, d)
	for j := range mean {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	return &Model{
		Mean:       mean,
		Components: axes,
		Variances:  pc.VarsTo(nil)[:components],
	}, nil
}

// Transform projects points onto the fitted axes.
func (m *Model) Transform(points [][]float64) [][]float64 {
	_, k := m.Components.Dims()
	out := make([][]float64, len(points))

	centered := make([]float64, len(m.Mean))
	row := mat.NewVecDense(len(m.Mean), centered)
	proj := mat.NewVecDense(k, nil)

	for i, p := range points {
		for j := range centered {
			centered[j] = p[j] - m.Mean[j]
		}
		proj.MulVec(m.Components.T(), row)
		out[i] = mat.Col(nil, 0, proj)
	}
	return out
}

// PCA projects points onto their first components principal axes.
func PCA(points [][]float64, components int) ([][]float64, error) {
	m, err := Fit(points, components)
	if err != nil {
		return nil, err
	}
	return m.Transform(points), nil
}
