package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

// CSVOptions controls how ParseCSV reads a file.
type CSVOptions struct {
	// Header skips the first record.
	Header bool
	// SkipColumns drops that many leading columns (e.g. an id column).
	SkipColumns int
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// SkipInvalid drops records with a non-numeric value instead of failing.
	SkipInvalid bool
}

// ParseCSV reads numeric records from r. Blank lines are ignored; every
// kept record must have the same number of columns.
func ParseCSV(r io.Reader, opts CSVOptions) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	var (
		points [][]float64
		dim    = -1
		first  = true
	)

Records:
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrParse, err)
		}
		if first {
			first = false
			if opts.Header {
				continue
			}
		}
		line, _ := cr.FieldPos(0)

		if len(record) <= opts.SkipColumns {
			if opts.SkipInvalid {
				continue
			}
			return nil, &ParseError{Line: line, Column: len(record), Err: errors.New("too few columns")}
		}
		fields := record[opts.SkipColumns:]

		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				if opts.SkipInvalid {
					continue Records
				}
				return nil, &ParseError{Line: line, Column: j + opts.SkipColumns + 1, Value: f, Err: err}
			}
			row[j] = v
		}

		if dim < 0 {
			dim = len(row)
		} else if len(row) != dim {
			if opts.SkipInvalid {
				continue
			}
			return nil, &ParseError{Line: line, Column: len(row) + opts.SkipColumns, Err: errors.New("ragged record")}
		}
		points = append(points, row)
	}

	return points, nil
}

// WriteCSV writes points as comma separated records.
func WriteCSV(w io.Writer, points [][]float64) error {
	cw := csv.NewWriter(w)
	record := []string{}
	for _, p := range points {
		record = record[:0]
		for _, v := range p {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
