package goalstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
)

// Goal представляет строку таблицы накопительных целей
type Goal struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	HouseholdID      string     `gorm:"size:36;index:idx_goals_household" json:"household_id"`
	Name             string     `gorm:"size:128" json:"name"`
	TargetAmount     float64    `gorm:"type:decimal(18,2)" json:"target_amount"`
	CurrentBalance   float64    `gorm:"type:decimal(18,2)" json:"current_balance"`
	IncomePercentage float64    `gorm:"type:decimal(6,3)" json:"income_percentage"`
	TargetMonths     *int       `json:"target_months,omitempty"`
	ExpectedIncome   *float64   `gorm:"type:decimal(18,2)" json:"expected_income,omitempty"`
	IsPaused         bool       `gorm:"not null;default:false" json:"is_paused"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	IsSystemManaged  bool       `gorm:"not null;default:false" json:"is_system_managed"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Goal) TableName() string { return "goals" }

// Snapshot переводит строку в снимок для движка расчетов
func (g Goal) Snapshot() calculations.GoalSnapshot {
	id, err := uuid.Parse(g.ID)
	if err != nil {
		id = uuid.Nil
	}
	return calculations.GoalSnapshot{
		ID:               id,
		TargetAmount:     g.TargetAmount,
		CurrentBalance:   g.CurrentBalance,
		IncomePercentage: g.IncomePercentage,
		TargetMonths:     g.TargetMonths,
		ExpectedIncome:   g.ExpectedIncome,
		Paused:           g.IsPaused,
		Completed:        g.IsCompleted,
		CompletedAt:      g.CompletedAt,
		SystemManaged:    g.IsSystemManaged,
	}
}

// Snapshots переводит набор строк в снимки
func Snapshots(goals []Goal) []calculations.GoalSnapshot {
	out := make([]calculations.GoalSnapshot, 0, len(goals))
	for _, g := range goals {
		out = append(out, g.Snapshot())
	}
	return out
}
