package clusterkit

import (
	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
)

// Members returns, for every cluster, the bitmap of point indices labeled
// with it. The number of bitmaps is the larger of K() and the highest label
// plus one, so empty clusters yield empty bitmaps.
func (r *Result) Members() []*roaring.Bitmap {
	k := r.K()
	for _, l := range r.Labels {
		if l+1 > k {
			k = l + 1
		}
	}
	out := make([]*roaring.Bitmap, k)
	for i := range out {
		out[i] = roaring.New()
	}
	for i, l := range r.Labels {
		out[l].Add(uint32(i))
	}
	for _, bm := range out {
		bm.RunOptimize()
	}
	return out
}

// Sizes returns the number of points in every cluster.
func (r *Result) Sizes() []int {
	members := r.Members()
	sizes := make([]int, len(members))
	for i, bm := range members {
		sizes[i] = int(bm.GetCardinality())
	}
	return sizes
}

// Centroids returns the mean point of every member set. An empty set yields
// a zero vector.
func Centroids(points [][]float64, members []*roaring.Bitmap) [][]float64 {
	dim := 0
	if len(points) > 0 {
		dim = len(points[0])
	}
	out := make([][]float64, len(members))
	for c, bm := range members {
		sum := make([]float64, dim)
		it := bm.Iterator()
		for it.HasNext() {
			floats.Add(sum, points[it.Next()])
		}
		if n := bm.GetCardinality(); n > 0 {
			floats.Scale(1/float64(n), sum)
		}
		out[c] = sum
	}
	return out
}

// RandIndex returns the fraction of point pairs on which two labelings agree,
// either placing both points together or both apart. Labelings of different
// length score 0.
func RandIndex(a, b []int) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		if n == len(b) && n == 1 {
			return 1
		}
		return 0
	}

	groups := func(labels []int) map[int]*roaring.Bitmap {
		m := make(map[int]*roaring.Bitmap)
		for i, l := range labels {
			bm, ok := m[l]
			if !ok {
				bm = roaring.New()
				m[l] = bm
			}
			bm.Add(uint32(i))
		}
		return m
	}
	ga, gb := groups(a), groups(b)

	pairs := func(c uint64) float64 { return float64(c) * float64(c-1) / 2 }

	// Pairs together in both labelings.
	var both float64
	for _, x := range ga {
		for _, y := range gb {
			both += pairs(x.AndCardinality(y))
		}
	}
	var inA, inB float64
	for _, x := range ga {
		inA += pairs(x.GetCardinality())
	}
	for _, y := range gb {
		inB += pairs(y.GetCardinality())
	}

	total := pairs(uint64(n))
	agree := total - inA - inB + 2*both
	return agree / total
}
