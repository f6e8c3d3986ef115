package calculations

// EmergencyFundPolicy продуктовые константы советника по резервному фонду
type EmergencyFundPolicy struct {
	// TargetMonths: на сколько месяцев расходов рассчитан резерв
	TargetMonths float64
	// ExpenseRatio: доля дохода, принимаемая за расходы при отсутствии истории
	ExpenseRatio float64
	// PaydownMonths: горизонт накопления остатка
	PaydownMonths float64
	MinPercent    float64
	MaxPercent    float64
	// MetRatio: доля цели, при которой резерв считается собранным
	MetRatio float64
}

// PolicyProvider определяет интерфейс для получения политик расчета
type PolicyProvider interface {
	EmergencyFundPolicy() EmergencyFundPolicy
	ForecastMaxMonths() int
	BalanceCap() float64
}

const (
	defaultForecastMaxMonths = 1200
	defaultBalanceCap        = 1e12
)

// DefaultEmergencyFundPolicy возвращает политику по умолчанию
func DefaultEmergencyFundPolicy() EmergencyFundPolicy {
	return EmergencyFundPolicy{
		TargetMonths:  6,
		ExpenseRatio:  0.8,
		PaydownMonths: 30,
		MinPercent:    5,
		MaxPercent:    20,
		MetRatio:      0.95,
	}
}

type defaultPolicy struct{}

func (defaultPolicy) EmergencyFundPolicy() EmergencyFundPolicy { return DefaultEmergencyFundPolicy() }
func (defaultPolicy) ForecastMaxMonths() int                   { return defaultForecastMaxMonths }
func (defaultPolicy) BalanceCap() float64                      { return defaultBalanceCap }

// DefaultPolicy возвращает набор политик по умолчанию
func DefaultPolicy() PolicyProvider {
	return defaultPolicy{}
}
