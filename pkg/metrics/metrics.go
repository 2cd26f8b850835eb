// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ContextBuildsTotal tracks relationship context builds by value source
	ContextBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "context",
			Name:      "builds_total",
			Help:      "Total number of relationship context builds by value source",
		},
		[]string{"tenant_id", "value_source"},
	)

	// ContextBuildDuration tracks context build duration in seconds
	ContextBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "context",
			Name:      "build_duration_seconds",
			Help:      "Duration of relationship context builds in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"tenant_id"},
	)

	// GraphNodesFetched tracks nodes hydrated per graph fetch
	GraphNodesFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "context",
			Name:      "graph_nodes_fetched",
			Help:      "Number of nodes hydrated per graph fetch",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// PropagationsTotal tracks per-entity propagation outcomes
	PropagationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "propagation",
			Name:      "entities_total",
			Help:      "Total number of per-entity propagation outcomes by status",
		},
		[]string{"tenant_id", "kind", "status"},
	)

	// RelationshipChangesTotal tracks entity link and unlink operations
	RelationshipChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "relationships",
			Name:      "changes_total",
			Help:      "Total number of relationship link/unlink operations",
		},
		[]string{"tenant_id", "operation"},
	)

	// ScanJobsProcessed tracks receipt scan jobs processed from the stream
	ScanJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "jobs_processed_total",
			Help:      "Total number of receipt scan jobs processed",
		},
		[]string{"provider", "status"},
	)

	// ScanJobDuration tracks scan job duration in seconds
	ScanJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "job_duration_seconds",
			Help:      "Duration of receipt scan jobs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// ScanJobsInFlight tracks scan jobs currently being processed
	ScanJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "jobs_in_flight",
			Help:      "Number of receipt scan jobs currently being processed",
		},
	)

	// ScanQueueDepth tracks entries sitting in the scan job stream
	ScanQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "queue_depth",
			Help:      "Number of entries in the receipt scan stream",
		},
	)

	// StatementRowsIngested tracks bank statement rows ingested from Kafka
	StatementRowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingestion",
			Name:      "statement_rows_total",
			Help:      "Total number of bank statement rows ingested",
		},
		[]string{"tenant_id", "source"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// GraphProjectionsTotal tracks graph mirror operations
	GraphProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "graphdb",
			Name:      "projections_total",
			Help:      "Total number of graph mirror operations by status",
		},
		[]string{"operation", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RegisterRoutes mounts the Prometheus scrape endpoint
func RegisterRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RecordContextBuild records a relationship context build
func RecordContextBuild(tenantID, valueSource string, durationSeconds float64) {
	ContextBuildsTotal.WithLabelValues(tenantID, valueSource).Inc()
	ContextBuildDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordPropagation records one per-entity propagation outcome
func RecordPropagation(tenantID, kind, status string) {
	PropagationsTotal.WithLabelValues(tenantID, kind, status).Inc()
}

// RecordRelationshipChange records a link or unlink operation
func RecordRelationshipChange(tenantID, operation string) {
	RelationshipChangesTotal.WithLabelValues(tenantID, operation).Inc()
}

// RecordScanJob records a receipt scan job outcome
func RecordScanJob(provider, status string, durationSeconds float64) {
	ScanJobsProcessed.WithLabelValues(provider, status).Inc()
	ScanJobDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// SetScanQueueDepth records the current length of the scan stream
func SetScanQueueDepth(depth int64) {
	ScanQueueDepth.Set(float64(depth))
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordGraphProjection records a graph mirror operation
func RecordGraphProjection(operation, status string) {
	GraphProjectionsTotal.WithLabelValues(operation, status).Inc()
}
