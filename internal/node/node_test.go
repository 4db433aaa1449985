package node

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jkachika/galileo/internal/config"
	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/topology"
)

// newTestNode builds a single-node cluster (one group, one node) so the
// partitioner's every branch degenerates to "this node", letting the
// HTTP surface be exercised end to end without a second process.
func newTestNode(t *testing.T) (*StorageNode, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	topoDir := filepath.Join(dir, "topology")
	require.NoError(t, os.MkdirAll(topoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(topoDir, "group-0"), []byte("localhost:9191\n"), 0o644))

	network, err := topology.Load(topoDir)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Config{
		Hostname:               "localhost",
		HTTPPort:               9191,
		DataDir:                filepath.Join(dir, "data"),
		SnapshotPath:           filepath.Join(dir, "data", "filesystems.json"),
		StatusPath:             filepath.Join(dir, "status.txt"),
		SpoolDir:               filepath.Join(dir, "spool"),
		QueryTimeout:           2 * time.Second,
		ReactorQueue:           64,
		ConnPoolTimeout:        2 * time.Second,
		AdmissionRatePerSecond: 1000,
		AdmissionBurst:         1000,
	}
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))

	n, err := New(cfg, network, logger.WithField("test", t.Name()))
	require.NoError(t, err)
	n.Start()
	t.Cleanup(n.Shutdown)

	srv := httptest.NewServer(n.Router())
	t.Cleanup(srv.Close)
	return n, srv
}

func createFilesystem(t *testing.T, srv *httptest.Server, name string) {
	t.Helper()
	desc := model.FilesystemDescriptor{
		Name:             name,
		SpatialPrecision: 6,
		TemporalType:     model.TemporalDay,
		NodesPerGroup:    1,
	}
	body, err := json.Marshal(desc)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/filesystems", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateFilesystemIsIdempotentAndVisibleInOverview(t *testing.T) {
	_, srv := newTestNode(t)
	createFilesystem(t, srv, "lakes")
	createFilesystem(t, srv, "lakes")

	resp, err := http.Get(srv.URL + "/api/filesystems")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mr model.MetadataResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mr))

	result, ok := mr.Result.(map[string]interface{})
	require.True(t, ok, "expected the coordinator's result object, got %T", mr.Result)
	perHost, ok := result["result"].(map[string]interface{})
	require.True(t, ok, "expected the merged host-keyed result map, got %T", result["result"])
	require.Equal(t, []interface{}{"lakes"}, perHost["localhost:9191"])
}

func TestStorageThenQueryRoundTrip(t *testing.T) {
	_, srv := newTestNode(t)
	createFilesystem(t, srv, "sightings")

	storeReq := model.StorageRequest{
		Filesystem: "sightings",
		Metadata: model.Metadata{
			HasTimestamp: true,
			Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Spatial:      model.PointPredicate(model.Coordinate{Lat: 47.6, Lon: -122.3}),
		},
		Payload: []byte("whale"),
	}
	body, err := json.Marshal(storeReq)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/storage", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	poly := model.Polygon{Vertices: []model.Coordinate{
		{Lat: 40, Lon: -130}, {Lat: 40, Lon: -110}, {Lat: 55, Lon: -110}, {Lat: 55, Lon: -130},
	}}
	queryReq := model.QueryRequest{Predicate: model.QueryPredicate{
		Filesystem: "sightings",
		Polygon:    &poly,
		DryRun:     true,
	}}
	body, err = json.Marshal(queryReq)
	require.NoError(t, err)

	resp, err = http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr model.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qr))

	payload, ok := qr.Payload.(map[string]interface{})
	require.True(t, ok, "expected the coordinator's result object, got %T", qr.Payload)
	perHost, ok := payload["result"].(map[string]interface{})
	require.True(t, ok, "expected the merged host-keyed result map, got %T", payload["result"])
	ids, ok := perHost["localhost:9191"].([]interface{})
	require.True(t, ok, "expected the dry-run identifier list, got %T", perHost["localhost:9191"])
	require.Len(t, ids, 1)
}

func TestNonInteractiveQuerySpoolsResultsToFile(t *testing.T) {
	_, srv := newTestNode(t)
	createFilesystem(t, srv, "spooled")

	storeReq := model.StorageRequest{
		Filesystem: "spooled",
		Metadata: model.Metadata{
			HasTimestamp: true,
			Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Spatial:      model.PointPredicate(model.Coordinate{Lat: 47.6, Lon: -122.3}),
		},
		Payload: []byte("whale"),
	}
	body, err := json.Marshal(storeReq)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/storage", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	poly := model.Polygon{Vertices: []model.Coordinate{
		{Lat: 40, Lon: -130}, {Lat: 40, Lon: -110}, {Lat: 55, Lon: -110}, {Lat: 55, Lon: -130},
	}}
	queryReq := model.QueryRequest{Predicate: model.QueryPredicate{
		Filesystem: "spooled",
		Polygon:    &poly,
	}}
	body, err = json.Marshal(queryReq)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr model.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qr))

	payload, ok := qr.Payload.(map[string]interface{})
	require.True(t, ok, "expected the coordinator's result object, got %T", qr.Payload)
	result, ok := payload["result"].(map[string]interface{})
	require.True(t, ok, "expected the merged host-keyed result map, got %T", payload["result"])

	var summary map[string]interface{}
	for _, v := range result {
		summary, ok = v.(map[string]interface{})
		require.True(t, ok)
		break
	}
	require.NotEmpty(t, summary["path"])
	require.EqualValues(t, 1, summary["matched"])

	raw, err := os.ReadFile(summary["path"].(string))
	require.NoError(t, err)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
}

func TestDeleteUnknownFilesystemReturnsNotFound(t *testing.T) {
	_, srv := newTestNode(t)
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/filesystems/does-not-exist", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateThenDeleteRemovesFilesystem(t *testing.T) {
	_, srv := newTestNode(t)
	createFilesystem(t, srv, "temp-fs")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/filesystems/temp-fs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/filesystems/temp-fs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var mr model.MetadataResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mr))

	result, ok := mr.Result.(map[string]interface{})
	require.True(t, ok, "expected the coordinator's result object, got %T", mr.Result)
	perHost, ok := result["result"].(map[string]interface{})
	require.True(t, ok, "expected the merged host-keyed result map, got %T", result["result"])
	require.Equal(t, false, perHost["localhost:9191"])
}

func TestOpenEndedTimeRangeRejectedByDefault(t *testing.T) {
	_, srv := newTestNode(t)
	createFilesystem(t, srv, "events")

	hi := int64(1000)
	queryReq := model.QueryRequest{Predicate: model.QueryPredicate{
		Filesystem:   "events",
		TimeHiMillis: &hi,
	}}
	body, err := json.Marshal(queryReq)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestNode(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
