package calculations

import (
	"time"
)

// ProgressPercent доля выплаченного основного долга, ограниченная [0, 100]
func ProgressPercent(principalPaid, principal float64) float64 {
	if principal <= 0 {
		return 0
	}
	pct := principalPaid / principal * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// ForecastDebt прогнозирует оставшийся срок и проценты до погашения.
// Если платеж не гасит долг за maxMonths месяцев, MonthsRemaining равен nil.
func ForecastDebt(loan LoanSnapshot, state ProjectedState, asOf time.Time, maxMonths int) (DebtForecast, error) {
	fc := DebtForecast{ProgressPercent: ProgressPercent(state.PrincipalPaid, loan.Principal)}

	if loan.PaidOff || state.CurrentBalance <= 0 {
		zero := 0
		fc.MonthsRemaining = &zero
		return fc, nil
	}

	payment, err := EffectiveMonthlyPayment(loan)
	if err != nil {
		return DebtForecast{}, err
	}
	if loan.AdditionalPayment > 0 {
		payment += loan.AdditionalPayment
	}
	if maxMonths <= 0 {
		maxMonths = defaultForecastMaxMonths
	}

	r := monthlyRate(loan.AnnualRatePercent)
	balance := state.CurrentBalance
	interestTotal := 0.0

	for m := 1; m <= maxMonths; m++ {
		interest := balance * r
		principalPart := payment - interest
		if principalPart <= 0 {
			// остаток не уменьшается, срок не определен
			return fc, nil
		}
		interestTotal += interest
		if principalPart >= balance-balanceEpsilon {
			months := m
			payoff := AddMonths(asOf, m)
			fc.MonthsRemaining = &months
			fc.TotalInterestRemaining = interestTotal
			fc.PayoffDate = &payoff
			return fc, nil
		}
		balance -= principalPart
	}

	return fc, nil
}
