package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/clusterkit/internal/conv"
)

// Magic starts every binary matrix.
const Magic = "CKM1"

const binaryHeaderSize = 12

// EncodeBinary writes points in the CKM format. All rows must have the
// length of the first.
func EncodeBinary(w io.Writer, points [][]float64) error {
	rows := len(points)
	cols := 0
	if rows > 0 {
		cols = len(points[0])
	}
	r32, err := conv.IntToUint32(rows)
	if err != nil {
		return fmt.Errorf("dataset: rows: %w", err)
	}
	c32, err := conv.IntToUint32(cols)
	if err != nil {
		return fmt.Errorf("dataset: columns: %w", err)
	}

	buf := make([]byte, binaryHeaderSize+8*rows*cols)
	copy(buf, Magic)
	binary.LittleEndian.PutUint32(buf[4:], r32)
	binary.LittleEndian.PutUint32(buf[8:], c32)

	off := binaryHeaderSize
	for i, p := range points {
		if len(p) != cols {
			return &ParseError{Line: i + 1, Column: len(p), Err: fmt.Errorf("row has %d columns, want %d", len(p), cols)}
		}
		for _, v := range p {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}

	_, err = w.Write(buf)
	return err
}

// DecodeBinary parses a CKM matrix. The result does not alias data.
func DecodeBinary(data []byte) ([][]float64, error) {
	if len(data) < binaryHeaderSize {
		return nil, ErrTruncated
	}
	if string(data[:4]) != Magic {
		return nil, ErrBadMagic
	}
	rows := binary.LittleEndian.Uint32(data[4:])
	cols := binary.LittleEndian.Uint32(data[8:])
	cells, err := conv.MulUint32(rows, cols)
	if err != nil || (len(data)-binaryHeaderSize)/8 < cells {
		return nil, fmt.Errorf("%w: %dx%d matrix in %d bytes", ErrTruncated, rows, cols, len(data)-binaryHeaderSize)
	}

	values := make([]float64, cells)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[binaryHeaderSize+8*i:]))
	}

	c := int(cols)
	points := make([][]float64, rows)
	for i := range points {
		points[i] = values[i*c : (i+1)*c : (i+1)*c]
	}
	return points, nil
}
