package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/homestead/internal/domain"
)

func TestCounters(t *testing.T) {
	m := New()

	m.JobStarted(domain.JobKindCrafting)
	m.JobStarted(domain.JobKindCrafting)
	m.JobCollected(domain.JobKindGathering)
	m.JobCancelled(domain.JobKindBuilding)
	m.StartRejected("job_in_progress")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Started.WithLabelValues("crafting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Collected.WithLabelValues("gathering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cancelled.WithLabelValues("building")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("job_in_progress")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.JobStarted(domain.JobKindGathering)
		m.JobCollected(domain.JobKindGathering)
		m.JobCancelled(domain.JobKindGathering)
		m.StartRejected("too_far")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.JobStarted(domain.JobKindGathering)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `jobs_started_total{kind="gathering"} 1`)
}
