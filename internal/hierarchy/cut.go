package hierarchy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Cut flattens the tree into exactly nClusters groups.
//
// The first N-nClusters merges are kept, which for a monotone linkage is the
// lowest height yielding nClusters groups. Labels start at 0 and are
// numbered in depth-first order from the root, visiting the smaller child
// id first.
func (t *Tree) Cut(nClusters int) ([]int, error) {
	if nClusters < 1 || nClusters > t.N {
		return nil, fmt.Errorf("%w: n_clusters=%d n=%d", ErrInvalidClusters, nClusters, t.N)
	}

	labels := make([]int, t.N)
	if t.N == 1 {
		return labels, nil
	}

	// Clusters with an id below cutoff exist in the flat partition or inside one.
	cutoff := t.N + (t.N - nClusters)
	next := 0

	stack := []int{2*t.N - 2}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id < cutoff {
			t.fill(id, next, labels)
			next++
			continue
		}
		m := t.Merges[id-t.N]
		// Right child is pushed first so the left one is visited first.
		stack = append(stack, m.B, m.A)
	}
	return labels, nil
}

// fill assigns label to every point below cluster id.
func (t *Tree) fill(id, label int, labels []int) {
	stack := []int{id}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c < t.N {
			labels[c] = label
			continue
		}
		m := t.Merges[c-t.N]
		stack = append(stack, m.B, m.A)
	}
}

// Fit builds the linkage tree of points and cuts it into nClusters groups.
func Fit(points mat.Matrix, nClusters int, method Method) ([]int, *Tree, error) {
	n, _ := points.Dims()
	if nClusters < 1 || nClusters > n {
		return nil, nil, fmt.Errorf("%w: n_clusters=%d n=%d", ErrInvalidClusters, nClusters, n)
	}
	tree, err := Linkage(points, method)
	if err != nil {
		return nil, nil, err
	}
	labels, err := tree.Cut(nClusters)
	if err != nil {
		return nil, nil, err
	}
	return labels, tree, nil
}
