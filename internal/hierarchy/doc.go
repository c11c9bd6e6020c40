// Package hierarchy implements agglomerative hierarchical clustering.
//
// Linkage produces the (N-1)-row merge tree using Lance-Williams distance
// updates for the ward, single, complete, average, weighted, centroid and
// median rules. Cut extracts a flat partition with a requested number of
// clusters ("maxclust").
//
// The package has no notion of centroids; callers derive them from labels.
package hierarchy
