package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cloud-ru/mcp-household-finance-go/internal/cache"
	"github.com/cloud-ru/mcp-household-finance-go/internal/config"
	"github.com/cloud-ru/mcp-household-finance-go/internal/goalstore"
)

// ErrUnknownTool возвращается для незарегистрированного имени инструмента
var ErrUnknownTool = errors.New("unknown tool")

// Deps содержит зависимости обработчиков. Store и Cache необязательны.
type Deps struct {
	Config *config.Config
	Tracer trace.Tracer
	Log    logrus.FieldLogger
	Store  *goalstore.Store
	Cache  *cache.IncomeBasisCache
}

// Registry сопоставляет имена инструментов с обработчиками
type Registry struct {
	handlers map[string]ToolHandler
	log      logrus.FieldLogger
}

func NewRegistry(d Deps) *Registry {
	tracer := d.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("tools")
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg := d.Config

	return &Registry{
		log: log,
		handlers: map[string]ToolHandler{
			"monthly_payment":         MonthlyPaymentHandler(cfg, tracer),
			"amortization_schedule":   AmortizationScheduleHandler(cfg, tracer),
			"convert_frequency":       ConvertFrequencyHandler(tracer),
			"debt_projection":         DebtProjectionHandler(cfg, tracer),
			"validate_allocation":     ValidateAllocationHandler(tracer),
			"income_basis":            IncomeBasisHandler(cfg, tracer, d.Cache),
			"goal_target_percentage":  GoalTargetPercentageHandler(cfg, tracer),
			"emergency_fund":          EmergencyFundHandler(cfg, tracer, d.Store),
			"goal_savings_projection": GoalSavingsProjectionHandler(cfg, tracer),
			"update_goal_allocation":  UpdateGoalAllocationHandler(tracer, d.Store),
			"set_goal_paused":         SetGoalPausedHandler(tracer, d.Store),
			"apply_goal_balance":      ApplyGoalBalanceHandler(cfg, tracer, d.Store),
		},
	}
}

// Names возвращает отсортированный список инструментов
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call вызывает инструмент по имени
func (r *Registry) Call(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	started := time.Now()
	res, err := h(ctx, params)
	entry := r.log.WithFields(logrus.Fields{
		"tool":        name,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("tool call failed")
		return nil, err
	}
	entry.Debug("tool call completed")
	return res, nil
}
