// Package conv converts between integer widths with bounds checks. It is
// used for the fixed-width counts in on-disk headers.
package conv
