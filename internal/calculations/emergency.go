package calculations

import "math"

// RecommendEmergencyFund рассчитывает целевую сумму резервного фонда и
// рекомендуемую долю дохода. monthlyIncome может быть доходом после налогов.
func RecommendEmergencyFund(policy EmergencyFundPolicy, monthlyIncome, monthlyExpenses, currentBalance float64) EmergencyFundRecommendation {
	basis := monthlyExpenses
	if basis <= 0 {
		basis = math.Max(monthlyIncome, 0) * policy.ExpenseRatio
	}

	target := basis * policy.TargetMonths
	remaining := math.Max(0, target-currentBalance)

	rec := EmergencyFundRecommendation{
		TargetAmount: target,
		MonthlyBasis: basis,
		Remaining:    remaining,
	}

	if monthlyIncome <= 0 || remaining <= 0 || policy.PaydownMonths <= 0 {
		return rec
	}
	if currentBalance >= policy.MetRatio*target {
		return rec
	}

	raw := remaining / policy.PaydownMonths / monthlyIncome * 100
	rec.IncomePercentage = math.Min(math.Max(raw, policy.MinPercent), policy.MaxPercent)
	return rec
}
