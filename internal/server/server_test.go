package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/dataset"
	"github.com/hupe1980/clusterkit/resource"
	"github.com/hupe1980/clusterkit/resultstore"
)

const blobsBody = `[[0,0],[0,1],[1,0],[10,10],[10,11],[11,10]]`

func newTestServer(t *testing.T, optFns ...Option) (*httptest.Server, blobstore.BlobStore) {
	t.Helper()
	blobs := blobstore.NewMemoryStore()
	srv := New(clusterkit.New(clusterkit.WithSeed(1)), blobs, optFns...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, blobs
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/cluster", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestCluster(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want clusterkit.Method
	}{
		{"KMeans", "/api/cluster", `{"data":` + blobsBody + `,"method":"kmeans","n_clusters":2}`, clusterkit.MethodKMeans},
		{"EM", "/api/cluster", `{"data":` + blobsBody + `,"method":"em","n_clusters":2,"max_iters":20}`, clusterkit.MethodEM},
		{"Hierarchical", "/api/cluster", `{"data":` + blobsBody + `,"method":"hierarchical","n_clusters":2}`, clusterkit.MethodHierarchical},
		{"LegacyShape", "/cluster", `{"points":` + blobsBody + `,"k":2,"max_iters":100}`, clusterkit.MethodKMeans},
	}

	ts, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts.URL+tt.path, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var res clusterkit.Result
			require.NoError(t, json.Unmarshal(body, &res))
			assert.Equal(t, tt.want, res.Method)
			require.Len(t, res.Labels, 6)
			assert.Len(t, res.Centroids, 2)
			assert.Equal(t, int64(1), res.Seed)
			for _, l := range res.Labels {
				assert.True(t, l == 0 || l == 1)
			}
		})
	}
}

func TestCluster_HierarchicalLinkageMatrix(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"method":"hierarchical","n_clusters":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res clusterkit.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.LinkageMatrix, 5)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, res.Labels)
}

func TestCluster_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"BadJSON", `{"data":`, http.StatusBadRequest},
		{"TooManyClusters", `{"data":` + blobsBody + `,"n_clusters":7}`, http.StatusBadRequest},
		{"OneCluster", `{"data":` + blobsBody + `,"n_clusters":1}`, http.StatusBadRequest},
		{"UnknownMethod", `{"data":` + blobsBody + `,"method":"dbscan","n_clusters":2}`, http.StatusBadRequest},
		{"UnknownLinkage", `{"data":` + blobsBody + `,"method":"hierarchical","linkage":"nope","n_clusters":2}`, http.StatusBadRequest},
		{"Ragged", `{"data":[[0,0],[1]],"n_clusters":2}`, http.StatusBadRequest},
		{"Empty", `{"data":[],"n_clusters":2}`, http.StatusBadRequest},
		{"ZeroIterations", `{"data":` + blobsBody + `,"n_clusters":2,"max_iters":0}`, http.StatusBadRequest},
	}

	ts, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts.URL+"/api/cluster", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestCluster_BodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 16
	ts, _ := newTestServer(t, WithConfig(cfg))

	resp, _ := post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"n_clusters":2}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCluster_RateLimited(t *testing.T) {
	rc := resource.NewController(resource.Config{RequestsPerSecond: 0.001, Burst: 1})
	metrics := &clusterkit.BasicMetricsCollector{}
	ts, _ := newTestServer(t, WithResourceController(rc), WithMetricsCollector(metrics))

	body := `{"data":` + blobsBody + `,"n_clusters":2}`
	resp, _ := post(t, ts.URL+"/api/cluster", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/cluster", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int64(1), metrics.GetStats().RejectedCount)
}

func TestCluster_SaveAndResults(t *testing.T) {
	rs := resultstore.New(blobstore.NewMemoryStore())
	ts, _ := newTestServer(t, WithResultStore(rs))

	resp, body := post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"n_clusters":2,"save":"blobs"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var saved clusterResponse
	require.NoError(t, json.Unmarshal(body, &saved))
	require.NotEmpty(t, saved.RunID)

	resp, body = get(t, ts.URL+"/api/results/blobs")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var run resultstore.Run
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, saved.RunID, run.ID)
	assert.Equal(t, saved.Labels, run.Result.Labels)

	resp, body = get(t, ts.URL+"/api/results/blobs/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"runs":["`+saved.RunID+`"]}`, string(body))

	resp, _ = get(t, ts.URL+"/api/results/blobs/runs/"+saved.RunID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/results/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResults_Disabled(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/api/results/blobs")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"n_clusters":2,"save":"blobs"}`)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestPreset(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, name := range dataset.Presets {
		t.Run(name, func(t *testing.T) {
			resp, body := get(t, ts.URL+"/api/dataset?type="+name)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var out struct {
				Points [][]float64 `json:"points"`
			}
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Len(t, out.Points, 500)
		})
	}

	resp, body := get(t, ts.URL+"/get-dataset")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	want, err := dataset.Preset("X1", dataset.DefaultPresetSeed)
	require.NoError(t, err)
	var out struct {
		Points [][]float64 `json:"points"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, want, out.Points)

	resp, _ = get(t, ts.URL+"/api/dataset?type=X9")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, ts.URL+"/get-dataset?type=X9")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out.Points = nil
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, want, out.Points)

	resp, _ = get(t, ts.URL+"/api/dataset?seed=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestData(t *testing.T) {
	ts, blobs := newTestServer(t)
	csv := "id,a,b,c\n" +
		"1,1,2,3\n" +
		"2,2,4,6\n" +
		"3,3,6,9\n" +
		"4,4,8,12\n"
	require.NoError(t, blobs.Put(context.Background(), "data.csv", []byte(csv)))

	resp, body := get(t, ts.URL+"/api/data")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Name string      `json:"name"`
		Data [][]float64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "data.csv", out.Name)
	require.Len(t, out.Data, 4)
	for _, row := range out.Data {
		assert.Len(t, row, 2)
		assert.InDelta(t, 0, row[1], 1e-9)
	}

	resp, _ = get(t, ts.URL+"/api/data?name=missing.csv")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/data?components=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/data?components=9")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/data?name=data.parquet")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlot(t *testing.T) {
	ts, _ := newTestServer(t)
	body := `{"data":` + blobsBody + `,"method":"kmeans","n_clusters":2}`

	resp, data := post(t, ts.URL+"/api/plot?format=png", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	resp, data = post(t, ts.URL+"/api/plot?format=html", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(data), "kmeans (k=2)")

	wide := `{"data":[[0,0,0],[0,1,0],[1,0,1],[10,10,9],[10,11,10],[11,10,10]],"n_clusters":2}`
	resp, _ = post(t, ts.URL+"/api/plot", wide)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/plot?format=svg", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlanar(t *testing.T) {
	points, centroids, err := planar([][]float64{{1}, {2}}, [][]float64{{1.5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {2, 0}}, points)
	assert.Equal(t, [][]float64{{1.5, 0}}, centroids)
}

func TestMetrics(t *testing.T) {
	pc := NewPrometheusCollector(nil)
	blobs := blobstore.NewMemoryStore()
	eng := clusterkit.New(clusterkit.WithSeed(1), clusterkit.WithMetricsCollector(pc))
	ts := httptest.NewServer(New(eng, blobs, WithMetricsCollector(pc), WithMetricsHandler(pc.Handler())).Handler())
	defer ts.Close()

	resp, _ := post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"n_clusters":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, ts.URL+"/api/cluster", `{"data":`+blobsBody+`,"n_clusters":9}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := string(body)
	assert.Contains(t, out, `clusterkit_fits_total{method="kmeans",status="success"} 1`)
	assert.Contains(t, out, `clusterkit_fits_total{method="kmeans",status="error"} 1`)
	assert.Contains(t, out, `clusterkit_points_total{method="kmeans"} 6`)
	assert.Contains(t, out, "clusterkit_fit_duration_seconds_bucket")
}
