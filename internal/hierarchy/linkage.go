package hierarchy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/clusterkit/distance"
)

var (
	// ErrTooFewPoints is returned when fewer than two points are given.
	ErrTooFewPoints = errors.New("hierarchy: at least two points are required")
	// ErrInvalidClusters is returned when a cut asks for a cluster count outside [1, n].
	ErrInvalidClusters = errors.New("hierarchy: number of clusters must be between 1 and the number of points")
	// ErrUnknownMethod is returned for an unrecognized linkage method.
	ErrUnknownMethod = errors.New("hierarchy: unknown linkage method")
)

// Method is the cluster distance update rule.
type Method int

const (
	Ward Method = iota
	Single
	Complete
	Average
	Weighted
	Centroid
	Median
)

var methodNames = [...]string{
	Ward:     "ward",
	Single:   "single",
	Complete: "complete",
	Average:  "average",
	Weighted: "weighted",
	Centroid: "centroid",
	Median:   "median",
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// Monotone reports whether merge distances produced by m never decrease.
func (m Method) Monotone() bool {
	return m != Centroid && m != Median
}

// ParseMethod resolves a linkage method by name. The empty string selects Ward.
func ParseMethod(name string) (Method, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Ward, nil
	}
	for m, n := range methodNames {
		if n == name {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Merge is one row of a linkage matrix. A and B are cluster ids with A < B;
// ids below N are points, the cluster formed by merge s has id N+s.
type Merge struct {
	A, B     int
	Distance float64
	Size     int
}

// Tree is the full agglomerative merge history of N points.
type Tree struct {
	N      int
	Method Method
	Merges []Merge
}

// Matrix returns the tree as an (N-1)×4 linkage matrix of
// [id a, id b, distance, size] rows.
func (t *Tree) Matrix() [][4]float64 {
	out := make([][4]float64, len(t.Merges))
	for i, m := range t.Merges {
		out[i] = [4]float64{float64(m.A), float64(m.B), m.Distance, float64(m.Size)}
	}
	return out
}

// Linkage builds the merge tree of the rows of points.
//
// Every step merges the closest pair of active clusters and updates the
// remaining distances with the Lance-Williams rule of method. When several
// pairs share the minimum distance, the pair found first in a row-major
// scan of active slots wins (lowest slot a, then lowest slot b). The merged
// cluster takes slot a.
func Linkage(points mat.Matrix, method Method) (*Tree, error) {
	n, dim := points.Dims()
	if n < 2 || dim == 0 {
		return nil, ErrTooFewPoints
	}
	if method < 0 || int(method) >= len(methodNames) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, method)
	}

	d := distance.Pairwise(points, points)
	ids := make([]int, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	for i := range ids {
		ids[i] = i
		sizes[i] = 1
		active[i] = true
	}

	t := &Tree{N: n, Method: method, Merges: make([]Merge, 0, n-1)}
	for step := 0; step < n-1; step++ {
		a, b := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			row := d.RawRowView(i)
			for j := i + 1; j < n; j++ {
				if active[j] && (a < 0 || row[j] < best) {
					a, b, best = i, j, row[j]
				}
			}
		}

		sa, sb := sizes[a], sizes[b]
		ia, ib := ids[a], ids[b]
		if ia > ib {
			ia, ib = ib, ia
		}
		t.Merges = append(t.Merges, Merge{A: ia, B: ib, Distance: best, Size: sa + sb})

		for k := 0; k < n; k++ {
			if !active[k] || k == a || k == b {
				continue
			}
			v := update(method, d.At(k, a), d.At(k, b), best, sa, sb, sizes[k])
			d.Set(k, a, v)
			d.Set(a, k, v)
		}
		active[b] = false
		ids[a] = n + step
		sizes[a] = sa + sb
	}
	return t, nil
}

// update returns the distance from cluster k to the union of clusters a and b.
func update(m Method, dka, dkb, dab float64, sa, sb, sk int) float64 {
	na, nb, nk := float64(sa), float64(sb), float64(sk)
	switch m {
	case Single:
		return math.Min(dka, dkb)
	case Complete:
		return math.Max(dka, dkb)
	case Average:
		return (na*dka + nb*dkb) / (na + nb)
	case Weighted:
		return (dka + dkb) / 2
	case Centroid:
		v := (na*dka*dka+nb*dkb*dkb)/(na+nb) - na*nb*dab*dab/((na+nb)*(na+nb))
		return math.Sqrt(math.Max(v, 0))
	case Median:
		v := dka*dka/2 + dkb*dkb/2 - dab*dab/4
		return math.Sqrt(math.Max(v, 0))
	default:
		t := na + nb + nk
		v := ((na+nk)*dka*dka + (nb+nk)*dkb*dkb - nk*dab*dab) / t
		return math.Sqrt(math.Max(v, 0))
	}
}
