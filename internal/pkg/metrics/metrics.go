// Package metrics provides Prometheus metrics for the federation control
// plane (RED + domain counters). Enterprise-grade: scrapeable /metrics;
// runbooks and dashboards can rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slate"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~3.8s
		},
		[]string{"method", "path"},
	)

	// HelmInvocationsTotal counts helm subprocess invocations by subcommand
	// and outcome (internal/executor via internal/procsup).
	HelmInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "helm_invocations_total",
			Help:      "Total number of helm subprocess invocations by subcommand and outcome.",
		},
		[]string{"subcommand", "outcome"}, // outcome: success, failure
	)

	// HelmInvocationDurationSeconds is helm subprocess latency.
	HelmInvocationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "helm_invocation_duration_seconds",
			Help:      "Helm subprocess invocation duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"subcommand"},
	)

	// KubectlInvocationsTotal counts kubectl subprocess invocations by
	// subcommand and outcome.
	KubectlInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kubectl_invocations_total",
			Help:      "Total number of kubectl subprocess invocations by subcommand and outcome.",
		},
		[]string{"subcommand", "outcome"},
	)

	// CacheHitsTotal and CacheMissesTotal cover the store's four cache
	// tiers (by-id, by-name, relation multimaps, kubeconfig file pool).
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of store cache hits by tier.",
		},
		[]string{"tier"}, // tier: <entity>_by_id, <entity>_by_name (and user_by_token, user_by_external_id), relation, kubeconfig
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of store cache misses by tier.",
		},
		[]string{"tier"},
	)

	// CascadeTasksTotal counts cascade fan-out tasks by kind and outcome
	// (internal/cascade, group/cluster cascading deletion).
	CascadeTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_tasks_total",
			Help:      "Total number of cascade fan-out tasks by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // kind: instance, secret, namespace, cluster
	)

	// ReaperChildrenActive is the process supervisor's current live
	// subprocess count (internal/procsup).
	ReaperChildrenActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reaper_children_active",
			Help:      "Number of subprocesses currently tracked by the process supervisor.",
		},
	)

	// InstancesInstalledTotal and InstancesDeletedTotal count application
	// instance lifecycle events (internal/executor.InstallApplication /
	// DeleteInstance).
	InstancesInstalledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_installed_total",
			Help:      "Total number of application instances installed, by application name.",
		},
		[]string{"application"},
	)

	InstancesDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_deleted_total",
			Help:      "Total number of application instances deleted, by application name.",
		},
		[]string{"application"},
	)

	// CircuitBreakerState tracks per-cluster circuit breaker state
	// (0=closed, 1=open, 2=half-open), used by internal/resilience to
	// protect against a misbehaving cluster's helm/kubectl calls.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"cluster_id"},
	)

	// CircuitBreakerTransitionsTotal counts circuit breaker state transitions.
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions.",
		},
		[]string{"cluster_id", "from_state", "to_state"},
	)

	// CircuitBreakerFailuresTotal counts circuit breaker failures.
	CircuitBreakerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_failures_total",
			Help:      "Total number of circuit breaker failures.",
		},
		[]string{"cluster_id"},
	)

	// AuthLoginAttemptsTotal counts bearer-token authentication attempts.
	AuthLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_login_attempts_total",
			Help:      "Total number of authentication attempts by outcome.",
		},
		[]string{"outcome"}, // outcome: success/failure
	)
)
