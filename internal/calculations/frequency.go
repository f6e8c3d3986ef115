package calculations

import (
	"errors"
	"fmt"
	"strings"
)

// PaymentFrequency периодичность платежей по долгу
type PaymentFrequency string

const (
	FrequencyMonthly     PaymentFrequency = "monthly"
	FrequencyBiweekly    PaymentFrequency = "biweekly"
	FrequencyWeekly      PaymentFrequency = "weekly"
	FrequencySemimonthly PaymentFrequency = "semimonthly"
	FrequencyDaily       PaymentFrequency = "daily"
)

// ErrUnknownFrequency возвращается для тега периодичности вне перечисления.
// Это ошибка вызывающего кода, а не данных.
var ErrUnknownFrequency = errors.New("unknown payment frequency")

// Frequencies перечисляет все поддерживаемые периодичности
func Frequencies() []PaymentFrequency {
	return []PaymentFrequency{
		FrequencyMonthly,
		FrequencyBiweekly,
		FrequencyWeekly,
		FrequencySemimonthly,
		FrequencyDaily,
	}
}

// ParseFrequency разбирает тег периодичности. Пустая строка означает monthly.
func ParseFrequency(s string) (PaymentFrequency, error) {
	f := PaymentFrequency(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FrequencyMonthly, nil
	}
	if _, err := f.PeriodsPerYear(); err != nil {
		return "", err
	}
	return f, nil
}

// PeriodsPerYear возвращает количество платежных периодов в году
func (f PaymentFrequency) PeriodsPerYear() (float64, error) {
	switch f {
	case FrequencyMonthly:
		return 12, nil
	case FrequencyBiweekly:
		return 26, nil
	case FrequencyWeekly:
		return 52, nil
	case FrequencySemimonthly:
		return 24, nil
	case FrequencyDaily:
		return 365, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
}

// monthlyFactor возвращает число периодов в месяц (периодов в году / 12)
func (f PaymentFrequency) monthlyFactor() (float64, error) {
	perYear, err := f.PeriodsPerYear()
	if err != nil {
		return 0, err
	}
	return perYear / 12.0, nil
}

// ToMonthly переводит платеж заданной периодичности в месячный эквивалент.
// Округление не выполняется: это ответственность вызывающего кода.
func ToMonthly(amount float64, f PaymentFrequency) (float64, error) {
	factor, err := f.monthlyFactor()
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, nil
	}
	return amount * factor, nil
}

// FromMonthly переводит месячную сумму в платеж заданной периодичности
func FromMonthly(monthlyAmount float64, f PaymentFrequency) (float64, error) {
	factor, err := f.monthlyFactor()
	if err != nil {
		return 0, err
	}
	if monthlyAmount <= 0 {
		return 0, nil
	}
	return monthlyAmount / factor, nil
}
