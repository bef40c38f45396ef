package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunestack/capacity-planner/internal/cache"
	"github.com/fortunestack/capacity-planner/internal/model"
	"github.com/fortunestack/capacity-planner/internal/selector"
	"github.com/fortunestack/capacity-planner/internal/store"
)

type stubRunner struct {
	report *model.Report
	err    error
	calls  int
}

func (s *stubRunner) Select(ctx context.Context, requirements model.RequirementSet, regions []string) (*model.Report, error) {
	s.calls++
	return s.report, s.err
}

type stubLister struct {
	regions []string
	err     error
}

func (s *stubLister) ListRegions(ctx context.Context) ([]string, error) {
	return s.regions, s.err
}

type stubFortunes struct {
	fortune *store.Fortune
	err     error
}

func (s *stubFortunes) Random(ctx context.Context) (*store.Fortune, error) {
	return s.fortune, s.err
}

func (s *stubFortunes) HealthCheck(ctx context.Context) error { return nil }

func testReport() *model.Report {
	return &model.Report{
		Feasible: []model.FeasibilityResult{
			{
				Region:   "us-east-1",
				Feasible: true,
				Resources: []model.ResourceHeadroom{
					{Service: "cpu", Usage: 2, Limit: 10, Required: 4, Headroom: 4, Known: true},
				},
				TotalHeadroom: 4,
			},
		},
		Diagnostics: []model.FeasibilityResult{
			{
				Region: "us-west-1",
				Resources: []model.ResourceHeadroom{
					{Service: "cpu", Required: 4, Known: false, Error: "throttled"},
				},
			},
		},
		CheckedAt: time.Now().UTC(),
	}
}

func newTestRouter(t *testing.T, runner SelectionRunner, lister RegionLister, fortunes FortuneSource) (*gin.Engine, *cache.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := cache.New(time.Minute)
	t.Cleanup(c.Stop)

	logger := logrus.New()
	requirements := model.RequirementSet{
		"cpu": {Service: "cpu", ServiceCode: "ec2", QuotaCode: "L-CPU", Required: 4},
	}

	h := New(runner, lister, fortunes, c, requirements, []string{"us-east-1", "us-west-1"}, logger)

	r := gin.New()
	h.Register(r)
	return r, c
}

func TestGetReport(t *testing.T) {
	runner := &stubRunner{report: testReport()}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Report    *model.Report `json:"report"`
		FromCache bool          `json:"from_cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.FromCache)
	require.Len(t, body.Report.Feasible, 1)
	assert.Equal(t, "us-east-1", body.Report.Feasible[0].Region)
	require.Len(t, body.Report.Diagnostics, 1)
	assert.False(t, body.Report.Diagnostics[0].Resources[0].Known)

	// Second call is served from cache without re-running the selection.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.FromCache)
	assert.Equal(t, 1, runner.calls)
}

func TestGetReportConfigurationError(t *testing.T) {
	runner := &stubRunner{err: &selector.ConfigurationError{Reason: "requirement set is empty"}}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "requirement set is empty")
}

func TestGetReportInternalError(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRegions(t *testing.T) {
	lister := &stubLister{regions: []string{"us-east-1", "us-west-2"}}
	r, _ := newTestRouter(t, &stubRunner{report: testReport()}, lister, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/regions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "us-west-2")
}

func TestRefreshClearsCache(t *testing.T) {
	runner := &stubRunner{report: testReport()}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, runner.calls)
}

func TestGetFortune(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		fortunes := &stubFortunes{fortune: &store.Fortune{ID: 1, Text: "Fortune favors the bold."}}
		r, _ := newTestRouter(t, &stubRunner{}, &stubLister{}, fortunes)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fortune", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Fortune favors the bold.")
	})

	t.Run("empty table", func(t *testing.T) {
		fortunes := &stubFortunes{err: store.ErrNoFortunes}
		r, _ := newTestRouter(t, &stubRunner{}, &stubLister{}, fortunes)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fortune", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no database configured", func(t *testing.T) {
		r, _ := newTestRouter(t, &stubRunner{}, &stubLister{}, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fortune", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{}, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestExportJSON(t *testing.T) {
	runner := &stubRunner{report: testReport()}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	// No cached report yet.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/export/json", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/export/json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "capacity-report-")

	var report model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, []string{"us-east-1"}, report.FeasibleRegions())
}

func TestExportHTML(t *testing.T) {
	runner := &stubRunner{report: testReport()}
	r, _ := newTestRouter(t, runner, &stubLister{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/export/html", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "us-east-1")
	assert.Contains(t, w.Body.String(), "unknown")
}
