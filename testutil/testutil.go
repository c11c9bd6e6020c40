package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformPoints returns num points with dim coordinates in [0, 1).
func (r *RNG) UniformPoints(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	for i := range data {
		data[i] = r.rand.Float64()
	}
	return rows(data, num, dim)
}

// GaussianBlobs returns clusters*perCluster points drawn from isotropic
// gaussians with standard deviation spread. Centers lie on the diagonal,
// separation apart, so blobs are disjoint whenever separation is large
// compared to spread. Points are shuffled; labels holds each point's blob.
func (r *RNG) GaussianBlobs(clusters, perCluster, dim int, separation, spread float64) ([][]float64, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	num := clusters * perCluster
	data := make([]float64, num*dim)
	labels := make([]int, num)

	for i := range num {
		c := i / perCluster
		labels[i] = c
		for j := range dim {
			data[i*dim+j] = float64(c)*separation + r.rand.NormFloat64()*spread
		}
	}

	points := rows(data, num, dim)
	r.rand.Shuffle(num, func(i, j int) {
		points[i], points[j] = points[j], points[i]
		labels[i], labels[j] = labels[j], labels[i]
	})
	return points, labels
}

// Jitter returns a copy of points with uniform noise in [-amount, amount)
// added to every coordinate.
func (r *RNG) Jitter(points [][]float64, amount float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]float64, len(points))
	for i, p := range points {
		q := make([]float64, len(p))
		for j, v := range p {
			q[j] = v + (2*r.rand.Float64()-1)*amount
		}
		out[i] = q
	}
	return out
}

func rows(data []float64, num, dim int) [][]float64 {
	out := make([][]float64, num)
	for i := range num {
		out[i] = data[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out
}
