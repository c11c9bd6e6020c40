package resultstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/codec"
	"github.com/hupe1980/clusterkit/internal/compress"
	"github.com/hupe1980/clusterkit/resource"
)

const (
	// Root is the blob prefix all runs live under.
	Root = "results"
	// CurrentFileName names the pointer to a dataset's latest run.
	CurrentFileName = "CURRENT"

	runExt = ".json"
)

var (
	// ErrNotFound is returned when a dataset has no runs or a run id is unknown.
	ErrNotFound = errors.New("resultstore: run not found")

	// ErrInvalidName is returned for dataset names or run ids that are empty
	// or contain path separators.
	ErrInvalidName = errors.New("resultstore: invalid name")

	// ErrUnknownCodec is returned when a run was written with a codec this
	// build does not know.
	ErrUnknownCodec = errors.New("resultstore: unknown codec")
)

// Run is the persisted envelope of one fit.
type Run struct {
	ID        string             `json:"id"`
	Dataset   string             `json:"dataset"`
	CreatedAt time.Time          `json:"created_at"`
	Codec     string             `json:"codec"`
	Result    *clusterkit.Result `json:"result"`
}

// Store saves and loads runs.
type Store struct {
	blobs       blobstore.BlobStore
	codec       codec.Codec
	compression compress.Type
	now         func() time.Time
	rc          *resource.Controller

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the codec used for new runs. Default is codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCompression sets the block compression used for new runs.
func WithCompression(t compress.Type) Option {
	return func(s *Store) {
		s.compression = t
	}
}

// WithResourceController charges run writes to rc's IO limiter.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Store) {
		s.rc = rc
	}
}

// New creates a Store on top of blobs.
func New(blobs blobstore.BlobStore, optFns ...Option) *Store {
	s := &Store{
		blobs:       blobs,
		codec:       codec.Default,
		compression: compress.None,
		now:         time.Now,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func datasetDir(dataset string) string {
	return path.Join(Root, dataset)
}

// Save persists res as a new run of dataset and makes it the latest.
func (s *Store) Save(ctx context.Context, dataset string, res *clusterkit.Result) (string, error) {
	if !validName(dataset) {
		return "", fmt.Errorf("%w: dataset %q", ErrInvalidName, dataset)
	}
	if res == nil {
		return "", errors.New("resultstore: nil result")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	run := Run{
		ID:        id.String(),
		Dataset:   dataset,
		CreatedAt: s.now().UTC(),
		Codec:     s.codec.Name(),
		Result:    res,
	}
	data, err := s.codec.Marshal(&run)
	if err != nil {
		return "", fmt.Errorf("resultstore: encode run: %w", err)
	}
	if s.compression != compress.None {
		if data, err = compress.Compress(data, s.compression); err != nil {
			return "", err
		}
	}
	var buf bytes.Buffer
	if _, err := resource.NewRateLimitedWriter(ctx, &buf, s.rc).Write(data); err != nil {
		return "", err
	}
	data = buf.Bytes()

	filename := run.ID + runExt + s.compression.Extension()
	dir := datasetDir(dataset)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Put(ctx, path.Join(dir, filename), data); err != nil {
		return "", err
	}
	if err := s.blobs.Put(ctx, path.Join(dir, CurrentFileName), []byte(filename)); err != nil {
		return "", err
	}
	return run.ID, nil
}

// Load reads one run of dataset.
func (s *Store) Load(ctx context.Context, dataset, runID string) (*Run, error) {
	if !validName(dataset) || !validName(runID) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidName, dataset, runID)
	}
	dir := datasetDir(dataset)

	// Prefer the configured compression, then fall back to the others.
	exts := []string{s.compression.Extension()}
	for _, t := range []compress.Type{compress.None, compress.Zstd, compress.LZ4} {
		if t != s.compression {
			exts = append(exts, t.Extension())
		}
	}
	for _, ext := range exts {
		run, err := s.read(ctx, path.Join(dir, runID+runExt+ext))
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		return run, err
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, dataset, runID)
}

// Latest reads the run CURRENT points at.
func (s *Store) Latest(ctx context.Context, dataset string) (*Run, error) {
	if !validName(dataset) {
		return nil, fmt.Errorf("%w: dataset %q", ErrInvalidName, dataset)
	}
	dir := datasetDir(dataset)

	pointer, err := blobstore.ReadAll(ctx, s.blobs, path.Join(dir, CurrentFileName))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dataset)
		}
		return nil, err
	}
	filename := strings.TrimSpace(string(pointer))
	if !validName(filename) {
		return nil, fmt.Errorf("resultstore: corrupt pointer %q", filename)
	}

	run, err := s.read(ctx, path.Join(dir, filename))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, dataset, filename)
	}
	return run, err
}

// List returns the run ids of dataset, oldest first.
func (s *Store) List(ctx context.Context, dataset string) ([]string, error) {
	if !validName(dataset) {
		return nil, fmt.Errorf("%w: dataset %q", ErrInvalidName, dataset)
	}
	prefix := datasetDir(dataset) + "/"

	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, name := range names {
		base := strings.TrimPrefix(name, prefix)
		if strings.Contains(base, "/") {
			continue
		}
		if id, ok := runID(base); ok {
			ids = append(ids, id)
		}
	}
	// Version 7 ids sort by creation time.
	sort.Strings(ids)
	return ids, nil
}

// runID extracts the id from a run blob name.
func runID(base string) (string, bool) {
	for _, t := range []compress.Type{compress.None, compress.Zstd, compress.LZ4} {
		suffix := runExt + t.Extension()
		if t != compress.None && strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix), true
		}
	}
	if strings.HasSuffix(base, runExt) {
		return strings.TrimSuffix(base, runExt), true
	}
	return "", false
}

func (s *Store) read(ctx context.Context, name string) (*Run, error) {
	data, err := blobstore.ReadAll(ctx, s.blobs, name)
	if err != nil {
		return nil, err
	}
	if ext := path.Ext(name); ext != runExt {
		if data, err = compress.Decompress(data); err != nil {
			return nil, fmt.Errorf("resultstore: %s: %w", name, err)
		}
	}

	run := &Run{}
	if err := s.codec.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("resultstore: decode %s: %w", name, err)
	}
	if run.Codec != "" && run.Codec != s.codec.Name() {
		c, ok := codec.ByName(run.Codec)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, run.Codec)
		}
		run = &Run{}
		if err := c.Unmarshal(data, run); err != nil {
			return nil, fmt.Errorf("resultstore: decode %s: %w", name, err)
		}
	}
	return run, nil
}
