package calculations

import (
	"math"
	"time"
)

// balanceEpsilon: остаток ниже этого порога считается погашенным
const balanceEpsilon = 1e-6

// MonthsBetween возвращает число календарных месяцев между датами по схеме
// год×12+месяц, без учета дней. Для to раньше from результат 0.
func MonthsBetween(from, to time.Time) int {
	d := (to.Year()*12 + int(to.Month())) - (from.Year()*12 + int(from.Month()))
	if d < 0 {
		return 0
	}
	return d
}

// AddMonths сдвигает дату на n месяцев, прижимая день к концу месяца
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, n, 0)
	lastDay := shifted.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return shifted.AddDate(0, 0, day-1)
}

// EffectiveMonthlyPayment возвращает фиксированный месячный платеж долга:
// явный платеж, переведенный в месячный эквивалент, либо аннуитетный.
// Дополнительный взнос сюда не входит.
func EffectiveMonthlyPayment(loan LoanSnapshot) (float64, error) {
	freq := loan.Frequency
	if freq == "" {
		freq = FrequencyMonthly
	}
	if loan.PaymentAmount != nil && *loan.PaymentAmount > 0 {
		return ToMonthly(*loan.PaymentAmount, freq)
	}
	if _, err := freq.PeriodsPerYear(); err != nil {
		return 0, err
	}
	if loan.TermMonths == nil {
		return 0, nil
	}
	return MonthlyPayment(loan.Principal, loan.AnnualRatePercent, *loan.TermMonths), nil
}

// ProjectPaymentHistory восстанавливает выплаченные основной долг и проценты
// на дату asOf, прогоняя фиксированный платеж по прошедшим месяцам.
// Журнал платежей не нужен: при изменении условий (например, ставки)
// вся история пересчитывается по новым условиям.
func ProjectPaymentHistory(loan LoanSnapshot, asOf time.Time) (ProjectedState, error) {
	payment, err := EffectiveMonthlyPayment(loan)
	if err != nil {
		return ProjectedState{}, err
	}

	principal := math.Max(loan.Principal, 0)
	elapsed := MonthsBetween(loan.FirstPaymentDate, asOf)

	switch {
	case loan.PaidOff:
		return settledState(loan, principal, elapsed), nil
	case loan.Paused, loan.PrincipalPaid != nil && loan.InterestPaid != nil:
		return accruedState(loan, principal, elapsed), nil
	}

	state := ProjectedState{PeriodsElapsed: elapsed, CurrentBalance: principal}
	extra := math.Max(loan.AdditionalPayment, 0)
	if payment+extra <= 0 {
		return state, nil
	}

	r := monthlyRate(loan.AnnualRatePercent)
	balance := principal

	for p := 0; p < elapsed && balance > 0; p++ {
		interest := balance * r
		principalPart := payment - interest
		interestPart := interest
		if principalPart < 0 {
			// платеж не покрыл проценты: остаток не растет, недоплата не капитализируется
			state.NegativeAmortization = true
			principalPart = 0
			interestPart = payment
		}
		principalPart += extra
		if principalPart > balance {
			principalPart = balance
		}

		balance -= principalPart
		if balance < balanceEpsilon {
			balance = 0
		}
		state.PrincipalPaid += principalPart
		state.InterestPaid += interestPart
		state.PeriodsApplied++
	}

	state.CurrentBalance = balance
	return state, nil
}

// settledState для закрытого долга; дальнейшая проекция не выполняется
func settledState(loan LoanSnapshot, principal float64, elapsed int) ProjectedState {
	interest := 0.0
	if loan.InterestPaid != nil {
		interest = math.Max(*loan.InterestPaid, 0)
	}
	return ProjectedState{
		PrincipalPaid:  principal,
		InterestPaid:   interest,
		CurrentBalance: 0,
		PeriodsElapsed: elapsed,
	}
}

// accruedState возвращает последние сохраненные значения без начислений
func accruedState(loan LoanSnapshot, principal float64, elapsed int) ProjectedState {
	state := ProjectedState{PeriodsElapsed: elapsed}
	if loan.PrincipalPaid != nil {
		state.PrincipalPaid = math.Min(math.Max(*loan.PrincipalPaid, 0), principal)
	}
	if loan.InterestPaid != nil {
		state.InterestPaid = math.Max(*loan.InterestPaid, 0)
	}
	state.CurrentBalance = principal - state.PrincipalPaid
	return state
}
