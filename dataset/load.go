package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/internal/compress"
	"github.com/hupe1980/clusterkit/resource"
)

// Format identifies an on-disk point matrix encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatBinary
)

// LoadOption configures Load and Save.
type LoadOption func(*loadOptions)

type loadOptions struct {
	csv CSVOptions
	rc  *resource.Controller
}

// WithCSVOptions sets how CSV blobs are parsed.
func WithCSVOptions(o CSVOptions) LoadOption {
	return func(l *loadOptions) { l.csv = o }
}

// WithResourceController throttles blob reads and encodes through rc's IO
// limiter.
func WithResourceController(rc *resource.Controller) LoadOption {
	return func(l *loadOptions) { l.rc = rc }
}

// DetectFormat splits a blob name into its encoding and compression.
func DetectFormat(name string) (Format, compress.Type, error) {
	c := compress.None
	switch path.Ext(name) {
	case compress.Zstd.Extension():
		c = compress.Zstd
		name = strings.TrimSuffix(name, path.Ext(name))
	case compress.LZ4.Extension():
		c = compress.LZ4
		name = strings.TrimSuffix(name, path.Ext(name))
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, c, nil
	case ".ckm":
		return FormatBinary, c, nil
	default:
		return 0, c, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Load reads and decodes the named point matrix from store.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts ...LoadOption) ([][]float64, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, c, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	data, err := read(ctx, store, name, o.rc)
	if err != nil {
		return nil, err
	}
	if c != compress.None {
		if data, err = compress.Decompress(data); err != nil {
			return nil, fmt.Errorf("dataset: %s: %w", name, err)
		}
	}

	switch format {
	case FormatBinary:
		return DecodeBinary(data)
	default:
		return ParseCSV(bytes.NewReader(data), o.csv)
	}
}

func read(ctx context.Context, store blobstore.BlobStore, name string, rc *resource.Controller) ([]byte, error) {
	if rc == nil {
		return blobstore.ReadAll(ctx, store, name)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	return io.ReadAll(resource.NewRateLimitedReader(ctx, blobstore.NewReader(ctx, b), rc))
}

// Save encodes points in the format implied by name and stores them.
// Encoding is throttled by the IO limiter of WithResourceController.
func Save(ctx context.Context, store blobstore.BlobStore, name string, points [][]float64, opts ...LoadOption) error {
	format, c, err := DetectFormat(name)
	if err != nil {
		return err
	}
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	var buf bytes.Buffer
	w := resource.NewRateLimitedWriter(ctx, &buf, o.rc)
	switch format {
	case FormatBinary:
		err = EncodeBinary(w, points)
	default:
		err = WriteCSV(w, points)
	}
	if err != nil {
		return err
	}

	data := buf.Bytes()
	if c != compress.None {
		if data, err = compress.Compress(data, c); err != nil {
			return err
		}
	}
	return store.Put(ctx, name, data)
}
