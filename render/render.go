package render

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrLabelMismatch is returned when labels and points differ in length.
	ErrLabelMismatch = errors.New("render: labels do not match points")

	// ErrDimension is returned for points or centroids with fewer than two
	// coordinates.
	ErrDimension = errors.New("render: points need two coordinates")
)

// group collects the points of one cluster.
type group struct {
	label  int
	points [][2]float64
}

// groupByLabel splits points by label, ordered by label. A nil labels slice
// puts every point into cluster 0.
func groupByLabel(points [][]float64, labels []int) ([]group, error) {
	if labels != nil && len(labels) != len(points) {
		return nil, fmt.Errorf("%w: %d labels for %d points", ErrLabelMismatch, len(labels), len(points))
	}

	byLabel := make(map[int]*group)
	for i, p := range points {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d", ErrDimension, i, len(p))
		}
		l := 0
		if labels != nil {
			l = labels[i]
		}
		g, ok := byLabel[l]
		if !ok {
			g = &group{label: l}
			byLabel[l] = g
		}
		g.points = append(g.points, [2]float64{p[0], p[1]})
	}

	out := make([]group, 0, len(byLabel))
	for _, g := range byLabel {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out, nil
}

func checkCentroids(centroids [][]float64) error {
	for i, c := range centroids {
		if len(c) < 2 {
			return fmt.Errorf("%w: centroid %d has %d", ErrDimension, i, len(c))
		}
	}
	return nil
}

func clusterName(label int) string {
	return fmt.Sprintf("Cluster %d", label+1)
}
