package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TodoMetrics counts todo store operations by outcome.
type TodoMetrics struct {
	operations *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
}

func NewTodoMetrics(reg prometheus.Registerer) *TodoMetrics {
	m := &TodoMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendo_todo_operations_total",
				Help: "Total number of todo store operations",
			},
			[]string{"operation", "result"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendo_todo_list_cache_total",
				Help: "Todo list cache lookups",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.operations, m.cacheHits)
	return m
}

// ObserveOperation records one operation. A nil receiver is a no-op.
func (m *TodoMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *TodoMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}
