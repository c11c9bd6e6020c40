package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/dataset"
	"github.com/hupe1980/clusterkit/projection"
	"github.com/hupe1980/clusterkit/render"
	"github.com/hupe1980/clusterkit/resultstore"
)

var (
	errBadRequest    = errors.New("bad request")
	errNoResultStore = errors.New("result store not configured")
)

// clusterRequest accepts both request shapes of the demo frontends:
// {data, method, n_clusters} and {points, k, max_iters}.
type clusterRequest struct {
	Data      [][]float64 `json:"data"`
	Points    [][]float64 `json:"points"`
	Method    string      `json:"method"`
	NClusters *int        `json:"n_clusters"`
	K         *int        `json:"k"`
	MaxIters  *int        `json:"max_iters"`
	Linkage   string      `json:"linkage"`
	Seed      *int64      `json:"seed"`

	// Save names the dataset the result is stored under. Empty skips saving.
	Save string `json:"save"`
}

type clusterResponse struct {
	*clusterkit.Result
	RunID string `json:"run_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = s.cfg.Dataset
	}
	components := 2
	if v := q.Get("components"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: components %q", errBadRequest, v))
			return
		}
		components = n
	}

	points, err := dataset.Load(r.Context(), s.blobs, name,
		dataset.WithCSVOptions(dataset.CSVOptions{
			Header:      s.cfg.CSVHeader,
			SkipColumns: s.cfg.CSVSkipColumns,
		}),
		dataset.WithResourceController(s.rc),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := dataset.Validate(points); err != nil {
		s.writeError(w, err)
		return
	}

	projected, err := projection.PCA(dataset.NormalizeMax(points), components)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"name": name, "data": projected})
}

// handlePreset serves synthetic points. With fallback set an unknown type
// serves X1, which is how /get-dataset has always behaved.
func (s *Server) handlePreset(fallback bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.servePreset(w, r, fallback)
	}
}

func (s *Server) servePreset(w http.ResponseWriter, r *http.Request, fallback bool) {
	q := r.URL.Query()
	name := q.Get("type")
	if name == "" {
		name = "X1"
	}
	seed := s.cfg.PresetSeed
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: seed %q", errBadRequest, v))
			return
		}
		seed = n
	}

	points, err := dataset.Preset(name, seed)
	if fallback && errors.Is(err, dataset.ErrUnknownPreset) {
		points, err = dataset.Preset("X1", seed)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	req, save, err := s.decodeCluster(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.fit(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := clusterResponse{Result: res}
	if save != "" {
		if s.results == nil {
			s.writeError(w, errNoResultStore)
			return
		}
		if resp.RunID, err = s.results.Save(r.Context(), save, res); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "html" {
		s.writeError(w, fmt.Errorf("%w: format %q", errBadRequest, format))
		return
	}

	req, _, err := s.decodeCluster(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.fit(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	points, centroids, err := planar(req.Points, res.Centroids)
	if err != nil {
		s.writeError(w, err)
		return
	}

	title := fmt.Sprintf("%s (k=%d)", res.Method, res.K())
	var buf bytes.Buffer
	if format == "png" {
		err = render.ScatterPNG(&buf, points, res.Labels, centroids, title)
		w.Header().Set("Content-Type", "image/png")
	} else {
		err = render.ScatterHTML(&buf, points, res.Labels, centroids, title)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if err != nil {
		w.Header().Del("Content-Type")
		s.writeError(w, err)
		return
	}
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, errNoResultStore)
		return
	}
	run, err := s.results.Latest(r.Context(), r.PathValue("dataset"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, errNoResultStore)
		return
	}
	ids, err := s.results.List(r.Context(), r.PathValue("dataset"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": ids})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, errNoResultStore)
		return
	}
	run, err := s.results.Load(r.Context(), r.PathValue("dataset"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) decodeCluster(w http.ResponseWriter, r *http.Request) (clusterkit.Request, string, error) {
	limit := s.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultConfig().MaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return clusterkit.Request{}, "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	var in clusterRequest
	if err := s.codec.Unmarshal(body, &in); err != nil {
		return clusterkit.Request{}, "", fmt.Errorf("%w: %w", errBadRequest, err)
	}

	req := clusterkit.Request{
		Method:   clusterkit.MethodKMeans,
		Points:   in.Data,
		K:        s.cfg.DefaultK,
		MaxIters: s.cfg.DefaultMaxIters,
		Linkage:  in.Linkage,
		Seed:     in.Seed,
	}
	if req.Points == nil {
		req.Points = in.Points
	}
	if in.Method != "" {
		req.Method = clusterkit.Method(in.Method)
	}
	switch {
	case in.NClusters != nil:
		req.K = *in.NClusters
	case in.K != nil:
		req.K = *in.K
	}
	if in.MaxIters != nil {
		if *in.MaxIters <= 0 {
			return clusterkit.Request{}, "", fmt.Errorf("%w: %d", clusterkit.ErrInvalidIterations, *in.MaxIters)
		}
		req.MaxIters = *in.MaxIters
	}
	return req, in.Save, nil
}

func (s *Server) fit(ctx context.Context, req clusterkit.Request) (*clusterkit.Result, error) {
	if err := s.rc.Admit(); err != nil {
		m, perr := clusterkit.ParseMethod(string(req.Method))
		if perr != nil {
			m = req.Method
		}
		s.metrics.RecordRejected(m)
		return nil, fmt.Errorf("%w: %w", clusterkit.ErrOverloaded, err)
	}
	if s.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FitTimeout)
		defer cancel()
	}
	return s.engine.Fit(ctx, req)
}

// planar maps fitted points and centroids to two dimensions for plotting.
// Wider data is projected with PCA fitted on the points; one-dimensional
// data is placed on the x axis.
func planar(points, centroids [][]float64) ([][]float64, [][]float64, error) {
	dim := len(points[0])
	switch {
	case dim == 2:
		return points, centroids, nil
	case dim == 1:
		pad := func(in [][]float64) [][]float64 {
			out := make([][]float64, len(in))
			for i, p := range in {
				out[i] = []float64{p[0], 0}
			}
			return out
		}
		return pad(points), pad(centroids), nil
	default:
		model, err := projection.Fit(points, 2)
		if err != nil {
			return nil, nil, err
		}
		return model.Transform(points), model.Transform(centroids), nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusOf(err), errorResponse{Error: err.Error()})
}

// statusOf extends clusterkit.HTTPStatus with the errors of the supporting
// packages.
func statusOf(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, dataset.ErrParse),
		errors.Is(err, dataset.ErrUnknownFormat),
		errors.Is(err, dataset.ErrUnknownPreset),
		errors.Is(err, dataset.ErrBadMagic),
		errors.Is(err, dataset.ErrTruncated),
		errors.Is(err, projection.ErrInvalidComponents),
		errors.Is(err, render.ErrLabelMismatch),
		errors.Is(err, render.ErrDimension),
		errors.Is(err, resultstore.ErrInvalidName),
		errors.Is(err, blobstore.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, blobstore.ErrNotFound),
		errors.Is(err, resultstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoResultStore):
		return http.StatusNotImplemented
	default:
		return clusterkit.HTTPStatus(err)
	}
}
