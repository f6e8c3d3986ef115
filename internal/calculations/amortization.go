package calculations

import (
	"fmt"
	"math"
)

// monthlyRate переводит годовую ставку в процентах в месячную долю
func monthlyRate(annualRatePercent float64) float64 {
	if annualRatePercent <= 0 {
		return 0
	}
	return annualRatePercent / 100.0 / 12.0
}

// MonthlyPayment рассчитывает фиксированный аннуитетный платеж.
// Неполные входные данные (нулевой срок или сумма) дают 0, а не ошибку.
func MonthlyPayment(principal, annualRatePercent float64, termMonths int) float64 {
	if termMonths <= 0 || principal <= 0 {
		return 0
	}
	r := monthlyRate(annualRatePercent)
	n := float64(termMonths)
	if r == 0 {
		return principal / n
	}
	growth := math.Pow(1.0+r, n)
	return principal * r * growth / (growth - 1.0)
}

// AmortizationSchedule рассчитывает график аннуитетного кредита
func AmortizationSchedule(principal, annualRatePercent float64, months int) (*CalculationResult, error) {
	if principal <= 0 || months <= 0 {
		return nil, fmt.Errorf("для графика нужны положительные сумма и срок")
	}

	r := monthlyRate(annualRatePercent)
	payment := MonthlyPayment(principal, annualRatePercent, months)

	schedule := make([]ScheduleEntry, 0, months)
	remaining := principal
	cumI := 0.0
	cumP := 0.0
	totalPaid := 0.0

	for m := 1; m <= months; m++ {
		interest := remaining * r
		principalComponent := payment - interest
		monthly := payment

		// последний платеж закрывает остаток, накопленный из-за погрешности
		if m == months {
			principalComponent = remaining
			monthly = principalComponent + interest
		}

		remaining -= principalComponent
		cumI += interest
		cumP += principalComponent
		totalPaid += monthly

		if remaining < -0.01 {
			return nil, fmt.Errorf("численная ошибка: остаток кредита стал отрицательным")
		}

		schedule = append(schedule, ScheduleEntry{
			Month:               m,
			Payment:             monthly,
			Interest:            interest,
			PrincipalComponent:  principalComponent,
			RemainingPrincipal:  math.Max(remaining, 0),
			CumulativeInterest:  cumI,
			CumulativePrincipal: cumP,
		})
	}

	summary := LoanSummary{
		Principal:         principal,
		AnnualRatePercent: annualRatePercent,
		Months:            months,
		MonthlyPayment:    payment,
		TotalPaid:         totalPaid,
		TotalInterest:     cumI,
	}

	return &CalculationResult{
		Summary:  summary,
		Schedule: schedule,
	}, nil
}
