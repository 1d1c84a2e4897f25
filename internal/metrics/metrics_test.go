package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *RoundMetrics
	m.ObserveOperation("roll", nil)
	m.ObserveCallback("registration", "assigned")
	m.ObserveRequest("prize_shuffle")
	m.SetAttendees(3)
	m.SetPrizes(4)
}

func TestRoundMetrics(t *testing.T) {
	m := Round()
	require.Same(t, m, Round())

	before := testutil.ToFloat64(m.operations.WithLabelValues("roll", "error"))
	m.ObserveOperation("roll", errors.New("boom"))
	require.Equal(t, before+1, testutil.ToFloat64(m.operations.WithLabelValues("roll", "error")))

	m.SetAttendees(5)
	require.Equal(t, float64(5), testutil.ToFloat64(m.attendees))
}
