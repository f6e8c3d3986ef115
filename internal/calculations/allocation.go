package calculations

import (
	"github.com/google/uuid"
)

// MaxAllocationPercent предел суммарной доли дохода активных целей
const MaxAllocationPercent = 100.0

// allocationTolerance гасит погрешность вида 33.3+33.3+33.4
const allocationTolerance = 1e-9

// ValidateAllocation проверяет, что сумма долей дохода активных целей вместе
// с новой долей не превышает 100%. Редактируемая цель исключается по id,
// uuid.Nil означает создание новой цели. Остальные цели не нормализуются.
//
// Функция чистая: атомарность чтения и записи обеспечивает вызывающий
// слой хранения (см. goalstore). Две проверки по одному устаревшему
// снимку могут пройти обе и вместе превысить 100%.
func ValidateAllocation(goals []GoalSnapshot, excludeGoalID uuid.UUID, newPercentage float64) AllocationResult {
	total := 0.0
	for _, g := range goals {
		if g.Paused {
			continue
		}
		if excludeGoalID != uuid.Nil && g.ID == excludeGoalID {
			continue
		}
		total += g.IncomePercentage
	}
	total += newPercentage

	return AllocationResult{
		Valid: total <= MaxAllocationPercent+allocationTolerance,
		Total: total,
	}
}

// IncomeBasisFromTransactions возвращает средний месячный доход по всем
// переданным месяцам. Месяц без поступлений считается нулем и занижает
// среднее, это намеренно консервативная оценка.
func IncomeBasisFromTransactions(monthlyIncomes []float64) float64 {
	if len(monthlyIncomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range monthlyIncomes {
		sum += v
	}
	return sum / float64(len(monthlyIncomes))
}

// GoalIncomeBasis возвращает базу дохода для цели: ожидаемый доход цели,
// если он задан, иначе общую базу домохозяйства
func GoalIncomeBasis(goal GoalSnapshot, householdBasis float64) float64 {
	if goal.ExpectedIncome != nil && *goal.ExpectedIncome > 0 {
		return *goal.ExpectedIncome
	}
	return householdBasis
}

// IncomePercentageFromTargetMonths рассчитывает долю дохода, нужную чтобы
// закрыть разрыв до цели ровно за targetMonths месяцев
func IncomePercentageFromTargetMonths(targetAmount, currentBalance float64, targetMonths int, incomeBasis float64) float64 {
	if incomeBasis <= 0 || targetMonths <= 0 {
		return 0
	}
	remaining := targetAmount - currentBalance
	if remaining <= 0 {
		return 0
	}
	return remaining / float64(targetMonths) / incomeBasis * 100
}
