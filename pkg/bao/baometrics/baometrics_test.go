package baometrics_test

import (
	"testing"

	"github.com/baoverify/bao3/pkg/bao/baometrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := baometrics.New("bao3", "test")
	require.NoError(t, reg.Register(c))

	c.GroupsAdmitted.Add(3)
	c.VerificationFailures.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawGroups, sawFailures bool
	for _, f := range families {
		switch f.GetName() {
		case "bao3_test_partial_groups_admitted_total":
			sawGroups = true
			require.Equal(t, float64(3), metricValue(f))
		case "bao3_test_verification_failures_total":
			sawFailures = true
			require.Equal(t, float64(1), metricValue(f))
		}
	}
	require.True(t, sawGroups)
	require.True(t, sawFailures)
}

func metricValue(f *dto.MetricFamily) float64 {
	return f.GetMetric()[0].GetCounter().GetValue()
}
