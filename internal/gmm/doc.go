// Package gmm fits Gaussian mixture models with expectation maximization.
//
// Initialization draws k distinct points as means, uses uniform weights and
// a scaled identity for every covariance. By default Fit runs exactly
// MaxIters E/M rounds; StopOnConvergence switches to an early exit on a
// stalled log-likelihood. Final labels come from one extra E-step.
//
// Numerical degeneracy is absorbed, not reported:
//
//   - densities under a covariance that is not positive definite are floored
//   - responsibilities are normalized in log space; rows whose density sum
//     underflows to zero become uniform
//   - responsibility column sums are floored before dividing
//   - every covariance gets a ridge on its diagonal
package gmm
