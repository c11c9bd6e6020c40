package clusterkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hupe1980/clusterkit/internal/gmm"
	"github.com/hupe1980/clusterkit/internal/hierarchy"
	"github.com/hupe1980/clusterkit/internal/kmeans"
	"github.com/hupe1980/clusterkit/resource"
)

var (
	// ErrInvalidCardinality is returned when the requested cluster count is
	// below 2 or above the number of points.
	ErrInvalidCardinality = errors.New("invalid cluster count")

	// ErrMalformedInput is returned for a point matrix that is empty, ragged,
	// has no columns or contains NaN or Inf.
	ErrMalformedInput = errors.New("malformed point matrix")

	// ErrInvalidMethod is returned for an unknown clustering method.
	ErrInvalidMethod = errors.New("invalid clustering method")

	// ErrInvalidLinkage is returned for an unknown hierarchical linkage method.
	ErrInvalidLinkage = errors.New("invalid linkage method")

	// ErrInvalidIterations is returned when max_iters is not positive.
	ErrInvalidIterations = errors.New("max_iters must be positive")

	// ErrOverloaded is returned when the resource controller rejects a fit.
	ErrOverloaded = errors.New("clustering engine overloaded")
)

// CardinalityError reports a cluster count that does not fit the input.
type CardinalityError struct {
	K     int
	N     int
	cause error
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("invalid cluster count: k=%d for %d points (need 2 <= k <= n)", e.K, e.N)
}

// Is reports whether target is ErrInvalidCardinality.
func (e *CardinalityError) Is(target error) bool { return target == ErrInvalidCardinality }

func (e *CardinalityError) Unwrap() error { return e.cause }

// InputError reports the position of a malformed value in the point matrix.
// Row and Col are -1 when the problem is not tied to a single cell.
type InputError struct {
	Row    int
	Col    int
	Reason string
}

func (e *InputError) Error() string {
	switch {
	case e.Row < 0:
		return "malformed point matrix: " + e.Reason
	case e.Col < 0:
		return fmt.Sprintf("malformed point matrix: row %d: %s", e.Row, e.Reason)
	default:
		return fmt.Sprintf("malformed point matrix: row %d col %d: %s", e.Row, e.Col, e.Reason)
	}
}

// Is reports whether target is ErrMalformedInput.
func (e *InputError) Is(target error) bool { return target == ErrMalformedInput }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, kmeans.ErrInvalidK),
		errors.Is(err, gmm.ErrInvalidK),
		errors.Is(err, hierarchy.ErrInvalidClusters):
		return fmt.Errorf("%w: %w", ErrInvalidCardinality, err)
	case errors.Is(err, kmeans.ErrEmptyInput),
		errors.Is(err, gmm.ErrEmptyInput),
		errors.Is(err, hierarchy.ErrTooFewPoints):
		return fmt.Errorf("%w: %w", ErrMalformedInput, err)
	case errors.Is(err, kmeans.ErrInvalidIterations),
		errors.Is(err, gmm.ErrInvalidIterations):
		return fmt.Errorf("%w: %w", ErrInvalidIterations, err)
	case errors.Is(err, hierarchy.ErrUnknownMethod):
		return fmt.Errorf("%w: %w", ErrInvalidLinkage, err)
	case errors.Is(err, resource.ErrRateLimited),
		errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOverloaded, err)
	}

	return err
}

// HTTPStatus maps an error returned by the engine to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidCardinality),
		errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrInvalidLinkage),
		errors.Is(err, ErrInvalidIterations):
		return http.StatusBadRequest
	case errors.Is(err, ErrOverloaded):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
