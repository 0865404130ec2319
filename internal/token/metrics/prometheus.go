package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder on a prometheus registry.
type PrometheusRecorder struct {
	tokensIssued       *prometheus.CounterVec
	tokensValidated    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	tokensRevoked      *prometheus.CounterVec
	revocationChecks   *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
}

// NewPrometheusRecorder builds and registers the collectors. Registering
// twice on the same registry returns prometheus's AlreadyRegistered error,
// so each registry gets at most one recorder.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Name:      "tokens_issued_total",
			Help:      "Tokens issued, by token type and PASETO purpose.",
		}, []string{"type", "purpose"}),

		tokensValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Name:      "tokens_validated_total",
			Help:      "Validation attempts, by token type and outcome.",
		}, []string{"type", "outcome"}),

		validationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopauth",
			Name:      "token_validation_duration_seconds",
			Help:      "Wall time of the validation pipeline.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		tokensRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Name:      "tokens_revoked_total",
			Help:      "Revocation writes, by reason.",
		}, []string{"reason"}),

		revocationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Name:      "revocation_checks_total",
			Help:      "Revocation lookups, by answering tier.",
		}, []string{"source"}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Name:      "cache_requests_total",
			Help:      "Cache lookups, by cache name and result.",
		}, []string{"cache", "result"}),
	}

	collectors := []prometheus.Collector{
		r.tokensIssued,
		r.tokensValidated,
		r.validationDuration,
		r.tokensRevoked,
		r.revocationChecks,
		r.cacheRequests,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *PrometheusRecorder) TokenIssued(tokenType, purpose string) {
	r.tokensIssued.WithLabelValues(tokenType, purpose).Inc()
}

func (r *PrometheusRecorder) TokenValidated(tokenType, outcome string) {
	r.tokensValidated.WithLabelValues(tokenType, outcome).Inc()
}

func (r *PrometheusRecorder) ValidationDuration(tokenType string, d time.Duration) {
	r.validationDuration.WithLabelValues(tokenType).Observe(d.Seconds())
}

func (r *PrometheusRecorder) TokenRevoked(reason string) {
	r.tokensRevoked.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) RevocationChecked(source string) {
	r.revocationChecks.WithLabelValues(source).Inc()
}

func (r *PrometheusRecorder) CacheRequest(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(cache, result).Inc()
}
