// Package distance provides the numeric kernels used by the clustering engines.
//
// # Functions
//
//   - Euclidean / SquaredEuclidean: distance between two points
//   - Pairwise: N×C distance matrix between points and centers
//   - GaussianDensity: multivariate normal density per point
//   - GaussianLogDensity: the same in log space, for high dimensions
//
// GaussianDensity never returns an error. A covariance that is not positive
// definite yields DensityFloor for every point, so callers running EM on a
// collapsing component keep going instead of failing mid-fit.
//
// # Usage
//
//	d := distance.Pairwise(points, centroids) // N×k
//	p := distance.GaussianDensity(points, mean, cov)
package distance
