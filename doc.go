// Package clusterkit provides a small clustering engine for Go.
//
// Three unsupervised partitioning algorithms are exposed behind one Engine:
//
//   - k-means (Lloyd's algorithm) with empty-cluster keep and convergence detection
//   - Gaussian mixtures fitted by expectation maximization, with density,
//     responsibility and covariance guards
//   - agglomerative hierarchical clustering (ward by default) with a
//     "maxclust" flat cut
//
// # Quick Start
//
//	eng := clusterkit.New(clusterkit.WithSeed(42))
//
//	res, err := eng.Fit(ctx, clusterkit.Request{
//	    Method: clusterkit.MethodKMeans,
//	    Points: points, // N×D
//	    K:      3,
//	})
//	if err != nil {
//	    return err // ErrInvalidCardinality, ErrMalformedInput, ...
//	}
//	fmt.Println(res.Labels, res.Centroids)
//
// # Results
//
// Result is JSON-serializable. Every method returns labels in [0, k) and a
// k×D centroid set. EM adds covariances and mixture weights; hierarchical
// clustering adds the (N-1)×4 linkage matrix and derives its centroids from
// the labels.
//
// # Randomness
//
// Every fit owns a *rand.Rand seeded from Request.Seed, the WithSeed option
// or the clock, in that order. The seed used is reported in Result.Seed, so
// any fit can be replayed.
//
// # Convergence
//
// k-means stops once no centroid moves beyond a relative 1e-5 / absolute
// 1e-8 tolerance. EM runs its whole iteration budget unless convergence
// stopping is enabled per request (StopOnConvergence) or per engine
// (WithEMConvergence).
//
// # Concurrency
//
// Engines hold no per-fit state and never modify the input, so a single
// Engine can serve concurrent fits. WithResourceController bounds how many
// fits run at once and how much working memory they reserve.
//
// # Packages
//
//   - dataset: CSV and binary point matrices, normalization, synthetic blobs
//   - projection: PCA for two-dimensional display
//   - render: PNG (gonum/plot) and HTML (go-echarts) scatter plots
//   - blobstore, blobstore/s3, blobstore/minio: dataset and result storage
//   - resultstore: versioned fit results with a CURRENT pointer
//   - resource: admission, concurrency and memory limits
package clusterkit
