package tools

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
	"github.com/cloud-ru/mcp-household-finance-go/internal/config"
	"github.com/cloud-ru/mcp-household-finance-go/internal/metrics"
	"github.com/cloud-ru/mcp-household-finance-go/internal/validators"
	"github.com/cloud-ru/mcp-household-finance-go/pkg/utils"
)

// MonthlyPaymentResult ответ инструмента monthly_payment
type MonthlyPaymentResult struct {
	MonthlyPayment   float64                       `json:"monthly_payment"`
	Payment          float64                       `json:"payment"`
	PaymentFrequency calculations.PaymentFrequency `json:"payment_frequency"`
}

// ConvertFrequencyResult ответ инструмента convert_frequency
type ConvertFrequencyResult struct {
	Amount          float64                       `json:"amount"`
	From            calculations.PaymentFrequency `json:"from"`
	To              calculations.PaymentFrequency `json:"to"`
	MonthlyAmount   float64                       `json:"monthly_amount"`
	ConvertedAmount float64                       `json:"converted_amount"`
}

// DebtProjectionResult ответ инструмента debt_projection
type DebtProjectionResult struct {
	AsOf           string                      `json:"as_of"`
	MonthlyPayment float64                     `json:"monthly_payment"`
	State          calculations.ProjectedState `json:"state"`
	Forecast       calculations.DebtForecast   `json:"forecast"`
	Message        string                      `json:"message,omitempty"`
}

// MonthlyPaymentHandler рассчитывает аннуитетный платеж и его эквивалент
// в выбранной периодичности
func MonthlyPaymentHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "monthly_payment")
		defer call.end()

		principal, err := floatParam(params, "principal")
		if err != nil {
			return nil, call.invalid(err)
		}
		rate, err := floatParam(params, "annual_rate_percent")
		if err != nil {
			return nil, call.invalid(err)
		}
		months, err := intParam(params, "months")
		if err != nil {
			return nil, call.invalid(err)
		}
		freqRaw, err := optStringParam(params, "payment_frequency")
		if err != nil {
			return nil, call.invalid(err)
		}
		freq, err := calculations.ParseFrequency(freqRaw)
		if err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.Float64("principal", principal),
			attribute.Float64("annual_rate_percent", rate),
			attribute.Int("months", months),
			attribute.String("payment_frequency", string(freq)),
		)

		if err := validate(
			validators.CheckPrincipal(cfg, principal),
			validators.CheckRate(cfg, rate),
			validators.CheckMonths(cfg, months),
		); err != nil {
			return nil, call.invalid(err)
		}

		monthly := calculations.MonthlyPayment(principal, rate, months)
		payment, err := calculations.FromMonthly(monthly, freq)
		if err != nil {
			return nil, call.failed(err)
		}

		call.ok(attribute.Float64("monthly_payment", monthly))
		return &MonthlyPaymentResult{
			MonthlyPayment:   utils.Round2(monthly),
			Payment:          utils.Round2(payment),
			PaymentFrequency: freq,
		}, nil
	}
}

// AmortizationScheduleHandler строит помесячный график аннуитетного кредита
func AmortizationScheduleHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "amortization_schedule")
		defer call.end()

		principal, err := floatParam(params, "principal")
		if err != nil {
			return nil, call.invalid(err)
		}
		rate, err := floatParam(params, "annual_rate_percent")
		if err != nil {
			return nil, call.invalid(err)
		}
		months, err := intParam(params, "months")
		if err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.Float64("principal", principal),
			attribute.Float64("annual_rate_percent", rate),
			attribute.Int("months", months),
		)

		if err := validate(
			validators.CheckPrincipal(cfg, principal),
			validators.CheckRate(cfg, rate),
			validators.CheckMonths(cfg, months),
		); err != nil {
			return nil, call.invalid(err)
		}

		result, err := calculations.AmortizationSchedule(principal, rate, months)
		if err != nil {
			return nil, call.failed(err)
		}

		if summary, ok := result.Summary.(calculations.LoanSummary); ok {
			call.ok(
				attribute.Float64("monthly_payment", summary.MonthlyPayment),
				attribute.Float64("total_paid", summary.TotalPaid),
			)
		} else {
			call.ok()
		}
		return roundResult(result), nil
	}
}

// ConvertFrequencyHandler переводит сумму между периодичностями платежей
func ConvertFrequencyHandler(tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "convert_frequency")
		defer call.end()

		amount, err := floatParam(params, "amount")
		if err != nil {
			return nil, call.invalid(err)
		}
		fromRaw, err := optStringParam(params, "from")
		if err != nil {
			return nil, call.invalid(err)
		}
		toRaw, err := optStringParam(params, "to")
		if err != nil {
			return nil, call.invalid(err)
		}
		from, err := calculations.ParseFrequency(fromRaw)
		if err != nil {
			return nil, call.invalid(err)
		}
		to, err := calculations.ParseFrequency(toRaw)
		if err != nil {
			return nil, call.invalid(err)
		}
		if !utils.IsFinite(amount) {
			return nil, call.invalid(fmt.Errorf("amount: значение не является конечным числом"))
		}

		call.span.SetAttributes(
			attribute.Float64("amount", amount),
			attribute.String("from", string(from)),
			attribute.String("to", string(to)),
		)

		monthly, err := calculations.ToMonthly(amount, from)
		if err != nil {
			return nil, call.failed(err)
		}
		converted, err := calculations.FromMonthly(monthly, to)
		if err != nil {
			return nil, call.failed(err)
		}

		call.ok()
		return &ConvertFrequencyResult{
			Amount:          amount,
			From:            from,
			To:              to,
			MonthlyAmount:   utils.Round2(monthly),
			ConvertedAmount: utils.Round2(converted),
		}, nil
	}
}

// DebtProjectionHandler восстанавливает выплаченное по долгу на дату as_of
// и прогнозирует срок погашения
func DebtProjectionHandler(cfg *config.Config, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		_, call := startCall(ctx, tracer, "debt_projection")
		defer call.end()

		loan, err := loanFromParams(cfg, params)
		if err != nil {
			return nil, call.invalid(err)
		}
		asOf, err := optDateParam(params, "as_of", time.Now().UTC())
		if err != nil {
			return nil, call.invalid(err)
		}

		call.span.SetAttributes(
			attribute.Float64("principal", loan.Principal),
			attribute.Float64("annual_rate_percent", loan.AnnualRatePercent),
			attribute.String("payment_frequency", string(loan.Frequency)),
			attribute.String("as_of", asOf.Format(DateLayout)),
		)

		payment, err := calculations.EffectiveMonthlyPayment(loan)
		if err != nil {
			return nil, call.failed(err)
		}
		state, err := calculations.ProjectPaymentHistory(loan, asOf)
		if err != nil {
			return nil, call.failed(err)
		}
		forecast, err := calculations.ForecastDebt(loan, state, asOf, cfg.ForecastMaxMonths())
		if err != nil {
			return nil, call.failed(err)
		}

		res := &DebtProjectionResult{
			AsOf:           asOf.Format(DateLayout),
			MonthlyPayment: utils.Round2(payment),
			State:          roundState(state),
			Forecast:       roundForecast(forecast),
		}
		if !forecast.Determined() {
			metrics.ForecastUndetermined.Inc()
			res.Message = "Срок погашения не определен: платеж не покрывает начисляемые проценты"
		}

		call.ok(
			attribute.Float64("current_balance", state.CurrentBalance),
			attribute.Bool("determined", forecast.Determined()),
		)
		return res, nil
	}
}

// loanFromParams собирает снимок долга из параметров и проверяет диапазоны
func loanFromParams(cfg *config.Config, params map[string]interface{}) (calculations.LoanSnapshot, error) {
	var loan calculations.LoanSnapshot
	var err error

	if loan.Principal, err = floatParam(params, "principal"); err != nil {
		return loan, err
	}
	if loan.AnnualRatePercent, err = floatParam(params, "annual_rate_percent"); err != nil {
		return loan, err
	}
	if loan.FirstPaymentDate, err = dateParam(params, "first_payment_date"); err != nil {
		return loan, err
	}
	if loan.TermMonths, err = optIntParam(params, "term_months"); err != nil {
		return loan, err
	}
	freqRaw, err := optStringParam(params, "payment_frequency")
	if err != nil {
		return loan, err
	}
	if loan.Frequency, err = calculations.ParseFrequency(freqRaw); err != nil {
		return loan, err
	}
	if loan.PaymentAmount, err = optFloatParam(params, "payment_amount"); err != nil {
		return loan, err
	}
	if loan.PrincipalPaid, err = optFloatParam(params, "principal_paid"); err != nil {
		return loan, err
	}
	if loan.InterestPaid, err = optFloatParam(params, "interest_paid"); err != nil {
		return loan, err
	}
	additional, err := optFloatParam(params, "additional_payment")
	if err != nil {
		return loan, err
	}
	if additional != nil {
		loan.AdditionalPayment = *additional
	}
	if loan.Paused, err = boolParam(params, "is_paused"); err != nil {
		return loan, err
	}
	if loan.PaidOff, err = boolParam(params, "is_paid_off"); err != nil {
		return loan, err
	}

	checks := []error{
		validators.CheckRate(cfg, loan.AnnualRatePercent),
		validators.CheckAmount(cfg, "additional_payment", loan.AdditionalPayment),
	}
	if loan.PaidOff {
		checks = append(checks, validators.CheckAmount(cfg, "principal", loan.Principal))
	} else {
		checks = append(checks, validators.CheckPrincipal(cfg, loan.Principal))
	}
	if loan.TermMonths != nil {
		checks = append(checks, validators.CheckMonths(cfg, *loan.TermMonths))
	}
	for _, opt := range []struct {
		name  string
		value *float64
	}{
		{"payment_amount", loan.PaymentAmount},
		{"principal_paid", loan.PrincipalPaid},
		{"interest_paid", loan.InterestPaid},
	} {
		if opt.value != nil {
			checks = append(checks, validators.CheckAmount(cfg, opt.name, *opt.value))
		}
	}
	return loan, validate(checks...)
}

func roundState(s calculations.ProjectedState) calculations.ProjectedState {
	s.PrincipalPaid = utils.Round2(s.PrincipalPaid)
	s.InterestPaid = utils.Round2(s.InterestPaid)
	s.CurrentBalance = utils.Round2(s.CurrentBalance)
	return s
}

func roundForecast(f calculations.DebtForecast) calculations.DebtForecast {
	f.TotalInterestRemaining = utils.Round2(f.TotalInterestRemaining)
	f.ProgressPercent = utils.RoundPercent(f.ProgressPercent)
	return f
}

// roundResult округляет график и сводку до копеек для показа
func roundResult(res *calculations.CalculationResult) *calculations.CalculationResult {
	out := &calculations.CalculationResult{Schedule: make([]calculations.ScheduleEntry, len(res.Schedule))}
	for i, e := range res.Schedule {
		e.Payment = utils.Round2(e.Payment)
		e.Interest = utils.Round2(e.Interest)
		e.PrincipalComponent = utils.Round2(e.PrincipalComponent)
		e.RemainingPrincipal = utils.Round2(e.RemainingPrincipal)
		e.CumulativeInterest = utils.Round2(e.CumulativeInterest)
		e.CumulativePrincipal = utils.Round2(e.CumulativePrincipal)
		e.StartingBalance = utils.Round2(e.StartingBalance)
		e.Contribution = utils.Round2(e.Contribution)
		e.EndingBalance = utils.Round2(e.EndingBalance)
		out.Schedule[i] = e
	}

	switch s := res.Summary.(type) {
	case calculations.LoanSummary:
		s.MonthlyPayment = utils.Round2(s.MonthlyPayment)
		s.TotalPaid = utils.Round2(s.TotalPaid)
		s.TotalInterest = utils.Round2(s.TotalInterest)
		out.Summary = s
	case calculations.SavingsSummary:
		s.MonthlyContribution = utils.Round2(s.MonthlyContribution)
		s.FinalBalance = utils.Round2(s.FinalBalance)
		s.TotalContributions = utils.Round2(s.TotalContributions)
		out.Summary = s
	default:
		out.Summary = res.Summary
	}
	return out
}
