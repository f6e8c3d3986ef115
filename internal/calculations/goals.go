package calculations

import (
	"fmt"
	"time"
)

// EvaluateGoalCompletion пересчитывает признак выполнения цели для нового
// баланса. Дата выполнения ставится один раз при первом достижении цели и
// сбрасывается, если баланс снова опустился ниже цели. Цель с нулевой
// суммой не считается выполненной.
func EvaluateGoalCompletion(goal GoalSnapshot, newBalance float64, now time.Time) GoalStatus {
	if goal.TargetAmount <= 0 || newBalance < goal.TargetAmount {
		return GoalStatus{}
	}
	if goal.Completed && goal.CompletedAt != nil {
		at := *goal.CompletedAt
		return GoalStatus{Completed: true, CompletedAt: &at}
	}
	at := now
	return GoalStatus{Completed: true, CompletedAt: &at}
}

// ProjectGoalSavings рассчитывает график накопления цели при ежемесячном
// взносе incomeBasis × IncomePercentage / 100
func ProjectGoalSavings(cfg PolicyProvider, goal GoalSnapshot, incomeBasis float64, horizonMonths int) (*CalculationResult, error) {
	if horizonMonths <= 0 {
		return nil, fmt.Errorf("горизонт накопления должен быть положительным")
	}

	contrib := 0.0
	if incomeBasis > 0 && goal.IncomePercentage > 0 {
		contrib = incomeBasis * goal.IncomePercentage / 100
	}

	summary := SavingsSummary{
		TargetAmount:        goal.TargetAmount,
		StartingBalance:     goal.CurrentBalance,
		MonthlyContribution: contrib,
	}

	balance := goal.CurrentBalance
	if goal.TargetAmount > 0 && balance >= goal.TargetAmount {
		done := 0
		summary.FinalBalance = balance
		summary.MonthsToTarget = &done
		return &CalculationResult{Summary: summary, Schedule: []ScheduleEntry{}}, nil
	}
	if contrib <= 0 {
		summary.FinalBalance = balance
		return &CalculationResult{Summary: summary, Schedule: []ScheduleEntry{}}, nil
	}

	balanceCap := cfg.BalanceCap()
	schedule := make([]ScheduleEntry, 0, horizonMonths)
	cumC := 0.0

	for m := 1; m <= horizonMonths; m++ {
		starting := balance
		balance += contrib
		cumC += contrib

		if balance > balanceCap {
			return nil, fmt.Errorf("итоговый баланс превысил верхнюю границу (проверьте долю и горизонт)")
		}

		schedule = append(schedule, ScheduleEntry{
			Month:           m,
			StartingBalance: starting,
			Contribution:    contrib,
			EndingBalance:   balance,
		})

		if goal.TargetAmount > 0 && balance >= goal.TargetAmount {
			months := m
			summary.MonthsToTarget = &months
			break
		}
	}

	summary.FinalBalance = balance
	summary.TotalContributions = cumC

	return &CalculationResult{
		Summary:  summary,
		Schedule: schedule,
	}, nil
}
