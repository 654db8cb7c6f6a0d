package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sqlGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_sql_generations_total",
			Help: "Total number of natural-language to SQL generations by outcome.",
		},
		[]string{"outcome"},
	)
	unsafeQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_unsafe_queries_total",
			Help: "Total number of SQL statements rejected by the safety validator.",
		},
	)
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_warehouse_queries_total",
			Help: "Total number of warehouse query executions by outcome.",
		},
		[]string{"outcome"},
	)
	warehouseQueryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydesk_warehouse_query_duration_ms",
			Help:    "Warehouse query latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	intentsRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_intents_routed_total",
			Help: "Total number of user messages routed by classified intent.",
		},
		[]string{"intent"},
	)
	chartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_charts_rendered_total",
			Help: "Total number of charts rendered by chart type.",
		},
		[]string{"type"},
	)
	schemaRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_schema_refreshes_total",
			Help: "Total number of schema snapshot loads by source.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		sqlGenerationsTotal,
		unsafeQueriesTotal,
		warehouseQueriesTotal,
		warehouseQueryDurationMs,
		intentsRoutedTotal,
		chartsRenderedTotal,
		schemaRefreshesTotal,
	)
}

func ObserveSQLGeneration(outcome string) {
	sqlGenerationsTotal.WithLabelValues(outcome).Inc()
}

func IncrementUnsafeQuery() {
	unsafeQueriesTotal.Inc()
}

func ObserveWarehouseQuery(outcome string, elapsed time.Duration) {
	warehouseQueriesTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		warehouseQueryDurationMs.Observe(float64(elapsed.Milliseconds()))
	}
}

func ObserveIntent(intent string) {
	intentsRoutedTotal.WithLabelValues(intent).Inc()
}

func ObserveChartRendered(chartType string) {
	chartsRenderedTotal.WithLabelValues(chartType).Inc()
}

func ObserveSchemaLoad(source string) {
	schemaRefreshesTotal.WithLabelValues(source).Inc()
}
