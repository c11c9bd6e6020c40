// Package kmeans implements k-means clustering (Lloyd's algorithm).
//
// Centroids are seeded from k distinct points drawn with the caller's
// *rand.Rand, so a fixed seed reproduces a fit exactly. An empty cluster
// keeps its previous centroid instead of being reseeded.
package kmeans
