package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRowsInserted_Labels(t *testing.T) {
	c := RowsInserted.WithLabelValues("regions", "sqlite")
	before := counterValue(t, c)
	c.Add(38)
	assert.Equal(t, before+38, counterValue(t, c))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	InsertConflicts.WithLabelValues("brands", "postgres").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "citypulse_insert_conflicts_total")
}
