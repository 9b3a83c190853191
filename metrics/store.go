package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics describes the activity store: request outcomes per operation,
// live record counts per category and the id counter.
type StoreMetrics struct {
	operations CounterVec
	activities GaugeVec
	nextID     Gauge
	deleted    Counter
}

// NewStoreMetrics registers the store metric set with reg.
func NewStoreMetrics(reg Registry) (*StoreMetrics, error) {
	operations, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_operations_total",
		Help: "Store operations by operation and result (ok or the rejection kind).",
	}, []string{"operation", "result"})
	if err != nil {
		return nil, fmt.Errorf("creating operations counter: %w", err)
	}

	activities, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activities",
		Help: "Number of stored activities by category.",
	}, []string{"category"})
	if err != nil {
		return nil, fmt.Errorf("creating activities gauge: %w", err)
	}

	nextID, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "activity_next_id",
		Help: "Identifier the next created activity will receive.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating next id gauge: %w", err)
	}

	deleted, err := reg.NewCounter(prometheus.CounterOpts{
		Name: "activities_deleted_total",
		Help: "Activities removed by delete requests.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating deleted counter: %w", err)
	}

	return &StoreMetrics{
		operations: operations,
		activities: activities,
		nextID:     nextID,
		deleted:    deleted,
	}, nil
}

// ObserveOperation counts one store operation.
func (m *StoreMetrics) ObserveOperation(operation, result string) {
	m.operations.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
}

// SetActivities records the per-category counts and the next id.
func (m *StoreMetrics) SetActivities(byCategory map[string]int, nextID int) {
	for category, n := range byCategory {
		m.activities.With(prometheus.Labels{"category": category}).Set(float64(n))
	}
	m.nextID.Set(float64(nextID))
}

// ObserveDeleted counts records removed by one delete.
func (m *StoreMetrics) ObserveDeleted(removed int) {
	if removed > 0 {
		m.deleted.Add(float64(removed))
	}
}
