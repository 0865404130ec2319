package metrics_test

import (
	"testing"
	"time"

	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.TokenIssued("ACCESS_TOKEN", "public")
	rec.TokenIssued("ACCESS_TOKEN", "public")
	rec.TokenValidated("ACCESS_TOKEN", metrics.OutcomeOK)
	rec.ValidationDuration("ACCESS_TOKEN", 5*time.Millisecond)
	rec.TokenRevoked("logout")
	rec.RevocationChecked("cache")
	rec.CacheRequest("revocation", true)
	rec.CacheRequest("revocation", false)

	require.Equal(t, 2.0, counterValue(t, reg, "shopauth_tokens_issued_total"))
	require.Equal(t, 1.0, counterValue(t, reg, "shopauth_tokens_revoked_total"))
	require.Equal(t, 2.0, counterValue(t, reg, "shopauth_cache_requests_total"))
}

// counterValue sums all children of one counter family.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestPrometheusRecorderDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := metrics.NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = metrics.NewPrometheusRecorder(reg)
	require.Error(t, err, "second registration on the same registry must fail")

	are := prometheus.AlreadyRegisteredError{}
	require.ErrorAs(t, err, &are)
}
