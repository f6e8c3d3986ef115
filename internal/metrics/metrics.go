package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls счетчик вызовов инструментов
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Общее количество вызовов инструментов",
		},
		[]string{"tool_name", "status"},
	)

	// CalculationErrors счетчик ошибок расчетов
	CalculationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_errors_total",
			Help: "Количество ошибок расчетов",
		},
		[]string{"tool_name", "error_type"},
	)

	// AllocationRejections счетчик отклоненных распределений дохода
	AllocationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_rejections_total",
			Help: "Распределения дохода, превысившие 100%",
		},
		[]string{"source"},
	)

	// ForecastUndetermined счетчик прогнозов без определенного срока погашения
	ForecastUndetermined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forecast_undetermined_total",
			Help: "Прогнозы, в которых платеж не покрывает проценты",
		},
	)

	// IncomeBasisCache счетчик обращений к кэшу базы дохода
	IncomeBasisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "income_basis_cache_total",
			Help: "Обращения к кэшу базы дохода",
		},
		[]string{"result"},
	)
)
