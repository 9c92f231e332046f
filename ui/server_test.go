package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokinet/adapters/rng"
	"gokinet/app"
	"gokinet/domain/core"
	"gokinet/domain/run"
	"gokinet/inference"
	"gokinet/internal/testkit"
	"gokinet/ports"
)

type memStore struct {
	records map[core.RunID]*run.Record
	order   []core.RunID
}

func newMemStore() *memStore {
	return &memStore{records: map[core.RunID]*run.Record{}}
}

func (m *memStore) Save(_ context.Context, rec *run.Record) error {
	if _, seen := m.records[rec.ID]; !seen {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) Get(_ context.Context, id core.RunID) (*run.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return rec, nil
}

func (m *memStore) List(_ context.Context, limit int) ([]*run.Record, error) {
	out := []*run.Record{}
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.records[m.order[i]])
	}
	return out, nil
}

var _ ports.RunStore = (*memStore)(nil)

func testServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	store := newMemStore()
	svc := app.NewEstimationService(nil, rng.NewSeedAdapter(), store, nil, log)
	return NewServer(svc, log), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), core.Version)
}

func TestGetUnknownRunIs404(t *testing.T) {
	srv, _ := testServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/runs/"+core.NewRunID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	srv, _ := testServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEstimateRejectsInvalidSeries(t *testing.T) {
	srv, _ := testServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/runs", map[string]interface{}{
		"t": []float64{0}, "o2": []float64{1}, "n2o": []float64{1},
		"ch2o": []float64{1}, "r3": []float64{0.1},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEstimateAndBrowseRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("full sampling run")
	}
	srv, store := testServer(t)

	sc, err := testkit.LinearRamp(12, 0.002, 42)
	require.NoError(t, err)

	cfg := inference.DefaultConfig()
	cfg.Chains = 1
	cfg.TuningSteps = 80
	cfg.DrawSteps = 40
	cfg.Biomass = 1.0
	cfg.Latency = inference.DriverLatency{}

	rr := doJSON(t, srv, http.MethodPost, "/api/runs", estimateRequest{
		Label: "api-ramp",
		T:     sc.Series.T, O2: sc.Series.O2, N2O: sc.Series.N2O,
		CH2O: sc.Series.CH2O, Rate: sc.Series.Rate,
		Config: &cfg,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created run.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "api-ramp", created.Label)
	assert.Len(t, created.Params, 6)
	require.Len(t, store.order, 1)

	rr = doJSON(t, srv, http.MethodGet, "/api/runs/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/runs?limit=5", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), created.ID.String())
}
