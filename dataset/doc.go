// Package dataset reads, writes and generates point matrices.
//
// Two on-disk formats are supported:
//
//   - CSV: one point per line, numeric columns; a header row and leading
//     identifier columns can be skipped.
//   - CKM: a little-endian binary matrix ("CKM1", rows uint32, cols uint32,
//     row-major float64 values).
//
// Either format may be wrapped in a compressed block, marked by a trailing
// ".zst" or ".lz4" extension. Load picks the decoder from the blob name:
//
//	points, err := dataset.Load(ctx, store, "datasets/students.csv",
//	    dataset.WithCSVOptions(dataset.CSVOptions{Header: true, SkipColumns: 1}))
//
// Preset generates the synthetic X1, X2 and X3 blob sets used for demos.
package dataset
