package pipe

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
)

func TestReportRunMetricsUpdatesArenaGauge(t *testing.T) {
	g := NewGraph(nil, mock.New(), nil)
	reservation, err := g.DeviceArena.Alloc(4096, 256)
	require.NoError(t, err)
	g.DeviceArena.AddRef(reservation, 1)

	before := testutil.ToFloat64(nodeDispatchTotal)
	g.reportRunMetrics(0.001, 3)

	require.Equal(t, before+3, testutil.ToFloat64(nodeDispatchTotal))
	require.Equal(t, float64(g.DeviceArena.PeakRSS()), testutil.ToFloat64(arenaPeakRSS.WithLabelValues(g.name())))
}
