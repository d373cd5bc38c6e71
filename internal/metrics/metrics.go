package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UpstreamErrors counts gateway forwards that failed at the transport level, by route prefix.
	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_errors_total",
			Help: "Forwarded requests that got no response from the upstream",
		},
		[]string{"route"},
	)

	// RateLimited counts requests rejected with 429, by tier (general, auth).
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Requests rejected by a rate-limit tier",
		},
		[]string{"tier"},
	)

	// AssignmentOps counts assignment workflow outcomes by operation and outcome.
	AssignmentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_assignment_operations_total",
			Help: "Assignment workflow outcomes",
		},
		[]string{"operation", "outcome"},
	)

	// CompensationFailures counts asset status writes the workflow could not
	// complete after the assignment side already changed. The reconciler repairs them.
	CompensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_compensation_failures_total",
			Help: "Asset release or rollback writes that failed",
		},
	)

	// InconsistentAssets is the number of assets found violating the
	// assigned-iff-one-active-assignment rule by the last reconcile pass.
	InconsistentAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_inconsistent_assets",
			Help: "Assets whose status disagrees with their active assignments",
		},
	)
)

var (
	idPathSegment = regexp.MustCompile(`/([0-9]+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[0-9a-fA-F]{24})(/|$)`)
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, UpstreamErrors, RateLimited,
			AssignmentOps, CompensationFailures, InconsistentAssets)
	})
}

// NormalizePath reduces cardinality by replacing numeric, uuid and ObjectID
// segments with {id}. E.g. /assignments/0b6f...5f60 -> /assignments/{id}.
func NormalizePath(path string) string {
	return idPathSegment.ReplaceAllString(path, "/{id}$2")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncUpstreamError(route string) { UpstreamErrors.WithLabelValues(route).Inc() }

func IncRateLimited(tier string) { RateLimited.WithLabelValues(tier).Inc() }

// RecordAssignment counts one workflow outcome, e.g. ("create", "conflict").
func RecordAssignment(operation, outcome string) {
	AssignmentOps.WithLabelValues(operation, outcome).Inc()
}

func IncCompensationFailure() { CompensationFailures.Inc() }

func SetInconsistentAssets(n int) { InconsistentAssets.Set(float64(n)) }
