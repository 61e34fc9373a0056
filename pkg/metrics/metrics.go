package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_resolutions_total",
			Help: "Total number of session property resolutions (count)",
		},
		[]string{"status"},
	)

	ResolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_resolution_duration_ms",
			Help:    "Duration of session property resolution in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	ResolverActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_resolver_active_rules",
			Help: "Number of active session match rules (count)",
		},
	)

	ResolverReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_resolver_reloads_total",
			Help: "Total number of rule set reloads (count)",
		},
		[]string{"status"},
	)

	RuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_rule_matches_total",
			Help: "Total number of per-rule match evaluations (count)",
		},
		[]string{"rule_id", "result"},
	)

	ResolveCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_resolve_cache_requests_total",
			Help: "Total number of resolve cache lookups (count)",
		},
		[]string{"result"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "operation", "status"},
	)
)

func RegisterResolverMetrics() {
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionDuration)
	prometheus.MustRegister(ResolverActiveRules)
	prometheus.MustRegister(ResolverReloadsTotal)
	prometheus.MustRegister(RuleMatchesTotal)
	prometheus.MustRegister(ResolveCacheRequestsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
}

func ObserveResolutionDuration(duration time.Duration, status string) {
	ResolutionDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetResolverActiveRules(count int) {
	ResolverActiveRules.Set(float64(count))
}

func IncRuleMatch(ruleID, result string) {
	RuleMatchesTotal.WithLabelValues(ruleID, result).Inc()
}

func IncResolveCacheRequest(result string) {
	ResolveCacheRequestsTotal.WithLabelValues(result).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func IncDatabaseQuery(service, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
}
