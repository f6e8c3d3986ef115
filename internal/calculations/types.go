package calculations

import (
	"time"

	"github.com/google/uuid"
)

// LoanSnapshot неизменяемый срез состояния долга на момент расчета
type LoanSnapshot struct {
	// Principal: сумма кредита за вычетом первоначального взноса
	Principal         float64          `json:"principal"`
	AnnualRatePercent float64          `json:"annual_rate_percent"`
	// TermMonths равен nil для возобновляемых долгов (кредитные карты)
	TermMonths       *int             `json:"term_months,omitempty"`
	FirstPaymentDate time.Time        `json:"first_payment_date"`
	Frequency        PaymentFrequency `json:"payment_frequency"`
	// PaymentAmount задан в периодичности Frequency; nil означает расчет по аннуитету
	PaymentAmount *float64 `json:"payment_amount,omitempty"`
	// PrincipalPaid и InterestPaid хранят накопленные значения; nil восстанавливается проекцией
	PrincipalPaid *float64 `json:"principal_paid,omitempty"`
	InterestPaid  *float64 `json:"interest_paid,omitempty"`
	// AdditionalPayment: дополнительный ежемесячный взнос в основной долг
	AdditionalPayment float64 `json:"additional_payment,omitempty"`
	Paused            bool    `json:"is_paused"`
	PaidOff           bool    `json:"is_paid_off"`
}

// ProjectedState восстановленное состояние долга на дату
type ProjectedState struct {
	PrincipalPaid float64 `json:"principal_paid"`
	// InterestPaid считает деньги, фактически ушедшие на проценты, а не
	// начисленные проценты: при отрицательной амортизации в периоде учитывается
	// весь платеж, неоплаченная часть процентов не накапливается
	InterestPaid   float64 `json:"interest_paid"`
	CurrentBalance float64 `json:"current_balance"`
	// PeriodsElapsed считает прошедшие календарные месяцы, PeriodsApplied реально учтенные платежи
	PeriodsElapsed int `json:"periods_elapsed"`
	PeriodsApplied int `json:"periods_applied"`
	// NegativeAmortization: хотя бы в одном периоде платеж не покрыл проценты
	NegativeAmortization bool `json:"negative_amortization"`
}

// DebtForecast прогноз погашения долга
type DebtForecast struct {
	// MonthsRemaining равен nil, если погашение не достигается в пределах горизонта
	MonthsRemaining        *int       `json:"months_remaining"`
	TotalInterestRemaining float64    `json:"total_interest_remaining"`
	ProgressPercent        float64    `json:"progress_percent"`
	PayoffDate             *time.Time `json:"payoff_date,omitempty"`
}

// Determined сообщает, удалось ли определить срок погашения
func (f DebtForecast) Determined() bool {
	return f.MonthsRemaining != nil
}

// GoalSnapshot срез состояния накопительной цели
type GoalSnapshot struct {
	ID               uuid.UUID  `json:"id"`
	TargetAmount     float64    `json:"target_amount"`
	CurrentBalance   float64    `json:"current_balance"`
	IncomePercentage float64    `json:"income_percentage"`
	TargetMonths     *int       `json:"target_months,omitempty"`
	ExpectedIncome   *float64   `json:"expected_income,omitempty"`
	Paused           bool       `json:"is_paused"`
	Completed        bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	// SystemManaged: цель, которую ведет система (резервный фонд)
	SystemManaged bool `json:"is_system_managed"`
}

// GoalStatus пересчитанный статус выполнения цели
type GoalStatus struct {
	Completed   bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AllocationResult результат проверки распределения дохода
type AllocationResult struct {
	Valid bool    `json:"valid"`
	Total float64 `json:"total"`
}

// EmergencyFundRecommendation рекомендация по резервному фонду
type EmergencyFundRecommendation struct {
	TargetAmount     float64 `json:"target_amount"`
	IncomePercentage float64 `json:"income_percentage"`
	MonthlyBasis     float64 `json:"monthly_basis"`
	Remaining        float64 `json:"remaining"`
}

// ScheduleEntry представляет одну запись в графике платежей или накоплений
type ScheduleEntry struct {
	Month               int     `json:"month"`
	Payment             float64 `json:"payment,omitempty"`
	Interest            float64 `json:"interest,omitempty"`
	PrincipalComponent  float64 `json:"principal_component,omitempty"`
	RemainingPrincipal  float64 `json:"remaining_principal"`
	CumulativeInterest  float64 `json:"cumulative_interest,omitempty"`
	CumulativePrincipal float64 `json:"cumulative_principal,omitempty"`
	StartingBalance     float64 `json:"starting_balance,omitempty"`
	Contribution        float64 `json:"contribution,omitempty"`
	EndingBalance       float64 `json:"ending_balance,omitempty"`
}

// LoanSummary представляет сводку по кредиту
type LoanSummary struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	Months            int     `json:"months"`
	MonthlyPayment    float64 `json:"monthly_payment"`
	TotalPaid         float64 `json:"total_paid"`
	TotalInterest     float64 `json:"total_interest"`
}

// SavingsSummary представляет сводку по накоплению цели
type SavingsSummary struct {
	TargetAmount        float64 `json:"target_amount"`
	StartingBalance     float64 `json:"starting_balance"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	FinalBalance        float64 `json:"final_balance"`
	TotalContributions  float64 `json:"total_contributions"`
	// MonthsToTarget равен nil, если цель не достигается в пределах горизонта
	MonthsToTarget *int `json:"months_to_target"`
}

// CalculationResult представляет результат расчета графика
type CalculationResult struct {
	Summary  interface{}     `json:"summary"`
	Schedule []ScheduleEntry `json:"schedule"`
}
