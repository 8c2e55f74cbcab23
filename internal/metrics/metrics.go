// Package metrics holds the Prometheus collectors shared by the loader and
// the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citypulse_rows_generated_total",
		Help: "Rows produced by the generator, by table",
	}, []string{"table"})
	RowsInserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citypulse_rows_inserted_total",
		Help: "Rows committed by the bulk loader, by table and driver",
	}, []string{"table", "driver"})
	InsertConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citypulse_insert_conflicts_total",
		Help: "Batches rolled back on a key conflict",
	}, []string{"table", "driver"})
	BatchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "citypulse_batch_duration_ms",
		Help:    "Duration of one insert chunk in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"table", "driver"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citypulse_http_requests_total",
		Help: "API requests by route pattern and status code",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "citypulse_http_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(RowsGenerated)
	prometheus.MustRegister(RowsInserted)
	prometheus.MustRegister(InsertConflicts)
	prometheus.MustRegister(BatchDurationMs)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
