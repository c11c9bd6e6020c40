package dataset

import (
	"fmt"
	"math/rand"
	"strings"
)

// DefaultPresetSeed is the seed Preset callers use when they have none.
const DefaultPresetSeed = 20

// Presets lists the names accepted by Preset.
var Presets = []string{"X1", "X2", "X3"}

// Blobs draws n points from isotropic Gaussian blobs with standard
// deviation std around centers. Points are spread evenly across the
// centers, the first n%len(centers) centers getting one extra. The second
// return value holds each point's center index.
func Blobs(rng *rand.Rand, centers [][]float64, std float64, n int) ([][]float64, []int) {
	if len(centers) == 0 || n <= 0 {
		return nil, nil
	}

	points := make([][]float64, 0, n)
	labels := make([]int, 0, n)
	per, extra := n/len(centers), n%len(centers)

	for c, center := range centers {
		count := per
		if c < extra {
			count++
		}
		for i := 0; i < count; i++ {
			p := make([]float64, len(center))
			for j, mu := range center {
				p[j] = mu + std*rng.NormFloat64()
			}
			points = append(points, p)
			labels = append(labels, c)
		}
	}
	return points, labels
}

// Transform multiplies every two-dimensional point by the row-major 2×2
// matrix m, in place.
func Transform(points [][]float64, m [2][2]float64) [][]float64 {
	for _, p := range points {
		x, y := p[0], p[1]
		p[0] = x*m[0][0] + y*m[1][0]
		p[1] = x*m[0][1] + y*m[1][1]
	}
	return points
}

// shear is a fixed random linear map that stretches blobs into ellipses.
func shear() [2][2]float64 {
	r := rand.New(rand.NewSource(0)) //nolint:gosec // fixed demo transform
	return [2][2]float64{
		{r.NormFloat64(), r.NormFloat64()},
		{r.NormFloat64(), r.NormFloat64()},
	}
}

// Preset generates one of the synthetic demo sets:
//
//   - X1: 500 points, three random centers, sheared
//   - X2: 500 points around (4,7), (9,9) and (9,2), sheared
//   - X3: 200 tall and 200 wide points around (5,5) plus 100 sheared points
//     around (7,7)
func Preset(name string, seed int64) ([][]float64, error) {
	newRand := func() *rand.Rand { return rand.New(rand.NewSource(seed)) } //nolint:gosec // reproducible demo data

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "X1":
		rng := newRand()
		centers := make([][]float64, 3)
		for i := range centers {
			centers[i] = []float64{rng.Float64()*20 - 10, rng.Float64()*20 - 10}
		}
		points, _ := Blobs(rng, centers, 1.5, 500)
		return Transform(points, shear()), nil

	case "X2":
		centers := [][]float64{{4, 7}, {9, 9}, {9, 2}}
		points, _ := Blobs(newRand(), centers, 1.5, 500)
		return Transform(points, shear()), nil

	case "X3":
		tall, _ := Blobs(newRand(), [][]float64{{5, 5}}, 1.5, 200)
		wide, _ := Blobs(newRand(), [][]float64{{5, 5}}, 1.5, 200)
		rest, _ := Blobs(newRand(), [][]float64{{7, 7}}, 1.5, 100)

		points := Transform(tall, [2][2]float64{{1, 0}, {0, 5}})
		points = append(points, Transform(wide, [2][2]float64{{5, 0}, {0, 1}})...)
		return append(points, Transform(rest, shear())...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}
