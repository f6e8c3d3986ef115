package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-household-finance-go/internal/cache"
	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
	"github.com/cloud-ru/mcp-household-finance-go/internal/config"
	"github.com/cloud-ru/mcp-household-finance-go/internal/goalstore"
	"github.com/cloud-ru/mcp-household-finance-go/internal/metrics"
	"github.com/cloud-ru/mcp-household-finance-go/internal/validators"
	"github.com/cloud-ru/mcp-household-finance-go/pkg/utils"
)

var (
	errNoStore        = errors.New("хранилище целей не настроено (DB_DSN)")
	errNoCache        = errors.New("кэш базы дохода не настроен (REDIS_ADDR)")
	errBasisNotCached = errors.New("база дохода не рассчитана, передайте monthly_incomes")
)

// AllocationResponse ответ проверки или изменения доли дохода
type AllocationResponse struct {
	Valid   bool    `json:"valid"`
	Total   float64 `json:"total"`
	Message string  `json:"message,omitempty"`
}

// IncomeBasisResult ответ инструмента income_basis
type IncomeBasisResult struct {
	IncomeBasis float64 `json:"income_basis"`
	// Months равен 0 для значения из кэша
	Months int  `json:"months,omitempty"`
	Cached bool `json:"cached"`
}

// GoalTargetPercentageResult ответ инструмента goal_target_percentage
type GoalTargetPercentageResult struct {
	IncomePercentage float64 `json:"income_percentage"`
	IncomeBasis      float64 `json:"income_basis"`
	MonthlyAmount    float64 `json:"monthly_amount"`
}

// EmergencyFundResult ответ инструмента emergency_fund
type EmergencyFundResult struct {
	Recommendation calculations.EmergencyFundRecommendation `json:"recommendation"`
	Goal           *goalstore.Goal                          `json:"goal,omitempty"`
	Message        string                                   `json:"message,omitempty"`
}

// allocationMessage формирует сообщение пользователю об отклоненной доле
func allocationMessage(total float64) string {
	return fmt.Sprintf("Суммарная доля дохода составит %g%%. Максимум %g%%.",
		utils.RoundPercent(total), calculations.MaxAllocationPercent)
}

func allocationResponse(res calculations.AllocationResult) *AllocationResponse {
	out := &AllocationResponse{Valid: res.Valid, Total: utils.RoundPercent(res.Total)}
	if !res.Valid {
		out.Message = allocationMessage(res.Total)
	}
	return out
}

// ValidateAllocationHandler проверяет долю дохода против переданных целей
func ValidateAllocationHandler(tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "validate_allocation")
		defer call.end()

		rawGoals, err := objectSliceParam(params, "goals")
		if err != nil {
			return nil, call.invalid(err)
		}
		goals := make([]calculations.GoalSnapshot, 0, len(rawGoals))
		for i, g := range rawGoals {
			snap, err := goalFromParams(g)
			if err != nil {
				return nil, call.invalid(fmt.Errorf("goals[%d]: %w", i, err))
			}
			goals = append(goals, snap)
		}
		exclude := uuid.Nil
		if raw, err := optStringParam(params, "exclude_goal_id"); err != nil {
			return nil, call.invalid(err)
		} else if raw != "" {
			if exclude, err = uuid.Parse(raw); err != nil {
				return nil, call.invalid(fmt.Errorf("invalid parameter: exclude_goal_id: %w", err))
			}
		}
		pct, err := floatParam(params, "new_percentage")
		if err != nil {
			return nil, call.invalid(err)
		}
		if err := validators.CheckPercentage("new_percentage", pct); err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.Int("goals", len(goals)),
			attribute.Float64("new_percentage", pct),
		)

		res := calculations.ValidateAllocation(goals, exclude, pct)
		if !res.Valid {
			metrics.AllocationRejections.WithLabelValues("validate").Inc()
		}

		call.ok(attribute.Bool("valid", res.Valid), attribute.Float64("total", res.Total))
		return allocationResponse(res), nil
	}
}

func goalFromParams(params map[string]interface{}) (calculations.GoalSnapshot, error) {
	var g calculations.GoalSnapshot
	id, err := optStringParam(params, "id")
	if err != nil {
		return g, err
	}
	if id != "" {
		if g.ID, err = uuid.Parse(id); err != nil {
			return g, fmt.Errorf("invalid parameter: id: %w", err)
		}
	}
	if g.IncomePercentage, err = floatParam(params, "income_percentage"); err != nil {
		return g, err
	}
	if err := validators.CheckPercentage("income_percentage", g.IncomePercentage); err != nil {
		return g, err
	}
	if g.Paused, err = boolParam(params, "is_paused"); err != nil {
		return g, err
	}
	return g, nil
}

// IncomeBasisHandler считает средний месячный доход за окно по переданным
// monthly_incomes. При заданном household_id и подключенном кэше рассчитанная
// база записывается в Redis. Без monthly_incomes база читается из кэша по
// household_id.
func IncomeBasisHandler(cfg *config.Config, tracer trace.Tracer, basisCache *cache.IncomeBasisCache) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, call := startCall(ctx, tracer, "income_basis")
		defer call.end()

		household, err := optStringParam(params, "household_id")
		if err != nil {
			return nil, call.invalid(err)
		}
		window := cfg.IncomeWindowMonths
		if w, err := optIntParam(params, "window_months"); err != nil {
			return nil, call.invalid(err)
		} else if w != nil {
			window = *w
		}
		if err := validators.ValidateIntRange("window_months", window, 1, cfg.MaxMonths); err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(attribute.Int("window_months", window))

		if raw, present := params["monthly_incomes"]; !present || raw == nil {
			return cachedIncomeBasis(ctx, call, basisCache, household, window)
		}

		incomes, err := floatSliceParam(params, "monthly_incomes")
		if err != nil {
			return nil, call.invalid(err)
		}
		checks := make([]error, 0, len(incomes))
		for i, v := range incomes {
			checks = append(checks, validators.CheckAmount(cfg, fmt.Sprintf("monthly_incomes[%d]", i), v))
		}
		if err := validate(checks...); err != nil {
			return nil, call.invalid(err)
		}

		// окно берется с конца ряда
		if len(incomes) > window {
			incomes = incomes[len(incomes)-window:]
		}
		res := &IncomeBasisResult{
			IncomeBasis: calculations.IncomeBasisFromTransactions(incomes),
			Months:      len(incomes),
		}
		call.span.SetAttributes(attribute.Int("months", res.Months))

		if basisCache != nil && household != "" {
			if err := basisCache.Set(ctx, household, window, res.IncomeBasis); err != nil {
				// кэш необязателен: расчет уже выполнен
				metrics.IncomeBasisCache.WithLabelValues("error").Inc()
			} else {
				metrics.IncomeBasisCache.WithLabelValues("store").Inc()
			}
		}

		call.ok(attribute.Float64("income_basis", res.IncomeBasis), attribute.Bool("cached", false))
		res.IncomeBasis = utils.Round2(res.IncomeBasis)
		return res, nil
	}
}

// cachedIncomeBasis отдает последнюю рассчитанную базу домохозяйства
func cachedIncomeBasis(ctx context.Context, call *toolCall, basisCache *cache.IncomeBasisCache, household string, window int) (interface{}, error) {
	if household == "" {
		return nil, call.invalid(fmt.Errorf("invalid parameter: monthly_incomes или household_id"))
	}
	if basisCache == nil {
		return nil, call.failed(errNoCache)
	}

	basis, ok, err := basisCache.Get(ctx, household, window)
	switch {
	case err != nil:
		metrics.IncomeBasisCache.WithLabelValues("error").Inc()
		return nil, call.failed(err)
	case !ok:
		metrics.IncomeBasisCache.WithLabelValues("miss").Inc()
		return nil, call.failed(fmt.Errorf("%w: %s", errBasisNotCached, household))
	}
	metrics.IncomeBasisCache.WithLabelValues("hit").Inc()

	call.ok(attribute.Float64("income_basis", basis), attribute.Bool("cached", true))
	return &IncomeBasisResult{IncomeBasis: utils.Round2(basis), Cached: true}, nil
}

// GoalTargetPercentageHandler рассчитывает долю дохода, закрывающую цель
// за target_months месяцев
func GoalTargetPercentageHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "goal_target_percentage")
		defer call.end()

		target, err := floatParam(params, "target_amount")
		if err != nil {
			return nil, call.invalid(err)
		}
		current, err := optFloatParam(params, "current_balance")
		if err != nil {
			return nil, call.invalid(err)
		}
		months, err := intParam(params, "target_months")
		if err != nil {
			return nil, call.invalid(err)
		}
		basis, err := floatParam(params, "income_basis")
		if err != nil {
			return nil, call.invalid(err)
		}
		expected, err := optFloatParam(params, "expected_income")
		if err != nil {
			return nil, call.invalid(err)
		}

		goal := calculations.GoalSnapshot{TargetAmount: target, TargetMonths: &months, ExpectedIncome: expected}
		if current != nil {
			goal.CurrentBalance = *current
		}

		checks := []error{
			validators.CheckAmount(cfg, "target_amount", target),
			validators.CheckAmount(cfg, "current_balance", goal.CurrentBalance),
			validators.CheckAmount(cfg, "income_basis", basis),
			validators.CheckMonths(cfg, months),
		}
		if expected != nil {
			checks = append(checks, validators.CheckAmount(cfg, "expected_income", *expected))
		}
		if err := validate(checks...); err != nil {
			return nil, call.invalid(err)
		}

		effective := calculations.GoalIncomeBasis(goal, basis)
		pct := calculations.IncomePercentageFromTargetMonths(goal.TargetAmount, goal.CurrentBalance, months, effective)

		call.span.SetAttributes(
			attribute.Float64("target_amount", target),
			attribute.Int("target_months", months),
		)
		call.ok(attribute.Float64("income_percentage", pct))

		return &GoalTargetPercentageResult{
			IncomePercentage: utils.Round2(pct),
			IncomeBasis:      utils.Round2(effective),
			MonthlyAmount:    utils.Round2(effective * pct / 100),
		}, nil
	}
}

// EmergencyFundHandler рекомендует резервный фонд. Если заданы household_id
// и хранилище, рекомендация записывается в системную цель.
func EmergencyFundHandler(cfg *config.Config, tracer trace.Tracer, store *goalstore.Store) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, call := startCall(ctx, tracer, "emergency_fund")
		defer call.end()

		income, err := floatParam(params, "monthly_income")
		if err != nil {
			return nil, call.invalid(err)
		}
		expenses, err := optFloatParam(params, "monthly_expenses")
		if err != nil {
			return nil, call.invalid(err)
		}
		balance, err := optFloatParam(params, "current_balance")
		if err != nil {
			return nil, call.invalid(err)
		}
		household, err := optStringParam(params, "household_id")
		if err != nil {
			return nil, call.invalid(err)
		}

		var exp, bal float64
		if expenses != nil {
			exp = *expenses
		}
		if balance != nil {
			bal = *balance
		}
		if err := validate(
			validators.CheckAmount(cfg, "monthly_income", income),
			validators.CheckAmount(cfg, "monthly_expenses", exp),
			validators.CheckAmount(cfg, "current_balance", bal),
		); err != nil {
			return nil, call.invalid(err)
		}

		rec := calculations.RecommendEmergencyFund(cfg.EmergencyFundPolicy(), income, exp, bal)
		res := &EmergencyFundResult{Recommendation: calculations.EmergencyFundRecommendation{
			TargetAmount:     utils.Round2(rec.TargetAmount),
			IncomePercentage: utils.RoundPercent(rec.IncomePercentage),
			MonthlyBasis:     utils.Round2(rec.MonthlyBasis),
			Remaining:        utils.Round2(rec.Remaining),
		}}

		if household != "" {
			if store == nil {
				return nil, call.failed(errNoStore)
			}
			goal, err := store.UpsertEmergencyFund(ctx, household, rec)
			var allocErr *goalstore.AllocationError
			switch {
			case errors.As(err, &allocErr):
				metrics.AllocationRejections.WithLabelValues("emergency_fund").Inc()
				res.Message = allocationMessage(allocErr.Total)
			case err != nil:
				return nil, call.failed(err)
			default:
				res.Goal = goal
			}
		}

		call.ok(
			attribute.Float64("target_amount", rec.TargetAmount),
			attribute.Float64("income_percentage", rec.IncomePercentage),
		)
		return res, nil
	}
}

// GoalSavingsProjectionHandler строит помесячный график накопления цели
func GoalSavingsProjectionHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "goal_savings_projection")
		defer call.end()

		target, err := floatParam(params, "target_amount")
		if err != nil {
			return nil, call.invalid(err)
		}
		current, err := optFloatParam(params, "current_balance")
		if err != nil {
			return nil, call.invalid(err)
		}
		pct, err := floatParam(params, "income_percentage")
		if err != nil {
			return nil, call.invalid(err)
		}
		basis, err := floatParam(params, "income_basis")
		if err != nil {
			return nil, call.invalid(err)
		}
		expected, err := optFloatParam(params, "expected_income")
		if err != nil {
			return nil, call.invalid(err)
		}
		horizon := cfg.MaxMonths
		if h, err := optIntParam(params, "horizon_months"); err != nil {
			return nil, call.invalid(err)
		} else if h != nil {
			horizon = *h
		}

		goal := calculations.GoalSnapshot{
			TargetAmount:     target,
			IncomePercentage: pct,
			ExpectedIncome:   expected,
		}
		if current != nil {
			goal.CurrentBalance = *current
		}

		checks := []error{
			validators.CheckAmount(cfg, "target_amount", target),
			validators.CheckAmount(cfg, "current_balance", goal.CurrentBalance),
			validators.CheckPercentage("income_percentage", pct),
			validators.CheckAmount(cfg, "income_basis", basis),
			validators.CheckHorizon(cfg, horizon),
		}
		if expected != nil {
			checks = append(checks, validators.CheckAmount(cfg, "expected_income", *expected))
		}
		if err := validate(checks...); err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.Float64("target_amount", target),
			attribute.Float64("income_percentage", pct),
			attribute.Int("horizon_months", horizon),
		)

		result, err := calculations.ProjectGoalSavings(cfg, goal, calculations.GoalIncomeBasis(goal, basis), horizon)
		if err != nil {
			return nil, call.failed(err)
		}

		call.ok(attribute.Int("schedule_len", len(result.Schedule)))
		return roundResult(result), nil
	}
}

// UpdateGoalAllocationHandler меняет долю дохода сохраненной цели в
// транзакции хранилища. Отклонение возвращается как valid=false с сообщением.
func UpdateGoalAllocationHandler(tracer trace.Tracer, store *goalstore.Store) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, call := startCall(ctx, tracer, "update_goal_allocation")
		defer call.end()

		if store == nil {
			return nil, call.failed(errNoStore)
		}
		goalID, err := stringParam(params, "goal_id")
		if err != nil {
			return nil, call.invalid(err)
		}
		pct, err := floatParam(params, "income_percentage")
		if err != nil {
			return nil, call.invalid(err)
		}
		if err := validators.CheckPercentage("income_percentage", pct); err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.String("goal_id", goalID),
			attribute.Float64("income_percentage", pct),
		)

		res, err := store.SetAllocation(ctx, goalID, pct)
		var allocErr *goalstore.AllocationError
		switch {
		case errors.As(err, &allocErr):
			metrics.AllocationRejections.WithLabelValues("store").Inc()
			call.ok(attribute.Bool("valid", false))
			return allocationResponse(calculations.AllocationResult{Total: allocErr.Total}), nil
		case errors.Is(err, goalstore.ErrNotFound):
			return nil, call.invalid(err)
		case err != nil:
			return nil, call.failed(err)
		}

		call.ok(attribute.Bool("valid", true), attribute.Float64("total", res.Total))
		return allocationResponse(res), nil
	}
}

// SetGoalPausedHandler приостанавливает или возобновляет цель
func SetGoalPausedHandler(tracer trace.Tracer, store *goalstore.Store) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, call := startCall(ctx, tracer, "set_goal_paused")
		defer call.end()

		if store == nil {
			return nil, call.failed(errNoStore)
		}
		goalID, err := stringParam(params, "goal_id")
		if err != nil {
			return nil, call.invalid(err)
		}
		paused, err := boolParam(params, "is_paused")
		if err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(attribute.String("goal_id", goalID), attribute.Bool("is_paused", paused))

		err = store.SetPaused(ctx, goalID, paused)
		var allocErr *goalstore.AllocationError
		switch {
		case errors.As(err, &allocErr):
			metrics.AllocationRejections.WithLabelValues("resume").Inc()
			call.ok(attribute.Bool("valid", false))
			return allocationResponse(calculations.AllocationResult{Total: allocErr.Total}), nil
		case errors.Is(err, goalstore.ErrNotFound):
			return nil, call.invalid(err)
		case err != nil:
			return nil, call.failed(err)
		}

		goal, err := store.Get(ctx, goalID)
		if err != nil {
			return nil, call.failed(err)
		}
		call.ok()
		return goal, nil
	}
}

// ApplyGoalBalanceHandler записывает новый баланс цели и пересчитывает
// признак выполнения
func ApplyGoalBalanceHandler(cfg *config.Config, tracer trace.Tracer, store *goalstore.Store) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, call := startCall(ctx, tracer, "apply_goal_balance")
		defer call.end()

		if store == nil {
			return nil, call.failed(errNoStore)
		}
		goalID, err := stringParam(params, "goal_id")
		if err != nil {
			return nil, call.invalid(err)
		}
		balance, err := floatParam(params, "current_balance")
		if err != nil {
			return nil, call.invalid(err)
		}
		if err := validators.CheckAmount(cfg, "current_balance", balance); err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(attribute.String("goal_id", goalID), attribute.Float64("current_balance", balance))

		goal, err := store.ApplyBalance(ctx, goalID, balance)
		switch {
		case errors.Is(err, goalstore.ErrNotFound):
			return nil, call.invalid(err)
		case err != nil:
			return nil, call.failed(err)
		}

		call.ok(attribute.Bool("completed", goal.IsCompleted))
		return goal, nil
	}
}
