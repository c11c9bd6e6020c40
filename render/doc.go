// Package render draws clustered two-dimensional points.
//
// ScatterPNG produces a static image with gonum/plot. ScatterHTML produces a
// self-contained interactive page with go-echarts. Both take points that are
// already projected to two dimensions, typically with package projection.
package render
