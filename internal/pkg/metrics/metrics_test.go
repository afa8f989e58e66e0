package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	// 各テストで新しいレジストリを使用
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.BookingTransitionsTotal)
	assert.NotNil(t, m.TxSerializationRetriesTotal)
	assert.NotNil(t, m.HoldsExpiredTotal)
	assert.NotNil(t, m.IdempotencyRequestsTotal)
	assert.NotNil(t, m.ActiveHolds)
}

func TestBookingTransitionsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.BookingTransitionsTotal.WithLabelValues("create_hold", "success").Inc()
	m.BookingTransitionsTotal.WithLabelValues("create_hold", "no_availability").Inc()
	m.BookingTransitionsTotal.WithLabelValues("accept", "hold_expired").Inc()
	m.BookingTransitionsTotal.WithLabelValues("expire", "success").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "booking_transitions_total" {
			found = true
			assert.Equal(t, 4, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "booking_transitions_total metric not found")
}

func TestIdempotencyRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.IdempotencyRequestsTotal.WithLabelValues("executed").Inc()
	m.IdempotencyRequestsTotal.WithLabelValues("replayed").Inc()
	m.IdempotencyRequestsTotal.WithLabelValues("conflict").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "idempotency_requests_total" {
			found = true
			assert.Equal(t, 3, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "idempotency_requests_total metric not found")
}

func TestActiveHolds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ActiveHolds.Inc()
	m.ActiveHolds.Inc()
	m.ActiveHolds.Dec()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() == "active_holds" {
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, float64(1), f.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Error("active_holds metric not found")
}
