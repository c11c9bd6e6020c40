// Package testutil provides testing utilities for clusterkit.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for point matrices with a known cluster
// structure.
//
// # Random Points
//
//	rng := testutil.NewRNG(seed)
//	pts := rng.UniformPoints(1000, 2)       // uniform [0, 1)
//
// # Ground Truth Clusters
//
//	pts, labels := rng.GaussianBlobs(3, 100, 2, 10, 0.5)
//	score := clusterkit.RandIndex(labels, res.Labels)
package testutil
