package telemetry

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DBStatsFunc returns a snapshot of the connection pool.
type DBStatsFunc func() sql.DBStats

// DBPoolMetrics exports connection pool statistics as observable gauges.
// Values are read on every collection cycle of the meter's reader.
type DBPoolMetrics struct {
	registration metric.Registration
}

// NewDBPoolMetrics registers db_pool_connections{state} and
// db_pool_connections_max against meter.
func NewDBPoolMetrics(meter metric.Meter, stats DBStatsFunc) (*DBPoolMetrics, error) {
	if stats == nil {
		return nil, errors.New("telemetry: nil DB stats function")
	}

	connections, err := meter.Int64ObservableGauge(
		"db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	maxConnections, err := meter.Int64ObservableGauge(
		"db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter(
		"db_pool_wait_total",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(attribute.String("state", "in_use")))
		o.ObserveInt64(connections, int64(s.OpenConnections), metric.WithAttributes(attribute.String("state", "open")))
		o.ObserveInt64(maxConnections, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, connections, maxConnections, waits)
	if err != nil {
		return nil, err
	}

	return &DBPoolMetrics{registration: reg}, nil
}

// Stop unregisters the callback.
func (m *DBPoolMetrics) Stop() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
