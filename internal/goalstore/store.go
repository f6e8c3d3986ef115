package goalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
)

// EmergencyFundName имя системной цели резервного фонда
const EmergencyFundName = "Emergency Fund"

const (
	txAttempts   = 3
	txRetryDelay = 20 * time.Millisecond
)

// Store хранит цели и проверяет распределение дохода внутри транзакции:
// чтение долей соседних целей, проверка и запись выполняются атомарно.
type Store struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func New(db *gorm.DB, log logrus.FieldLogger) *Store {
	return &Store{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// withHousehold открывает транзакцию и читает все цели домохозяйства.
// На MySQL строки блокируются (SELECT ... FOR UPDATE), на sqlite запись
// сериализуется самой базой.
func (s *Store) withHousehold(ctx context.Context, householdID string, fn func(tx *gorm.DB, peers []Goal) error) error {
	return s.runTx(ctx, func(tx *gorm.DB) error {
		peers, err := lockPeers(tx, householdID)
		if err != nil {
			return err
		}
		return fn(tx, peers)
	})
}

// withGoal работает как withHousehold, но по id цели
func (s *Store) withGoal(ctx context.Context, goalID string, fn func(tx *gorm.DB, goal *Goal, peers []Goal) error) error {
	return s.runTx(ctx, func(tx *gorm.DB) error {
		var goal Goal
		if err := tx.Where("id = ?", goalID).First(&goal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, goalID)
			}
			return err
		}
		peers, err := lockPeers(tx, goal.HouseholdID)
		if err != nil {
			return err
		}
		for i := range peers {
			if peers[i].ID == goal.ID {
				goal = peers[i]
			}
		}
		return fn(tx, &goal, peers)
	})
}

// runTx выполняет транзакцию и повторяет ее при взаимной блокировке MySQL.
// Две параллельные вставки в пустое домохозяйство под REPEATABLE READ
// берут gap-блокировки и одна из них получает 1213. После txAttempts
// попыток возвращается ErrConflict.
func (s *Store) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !isRetryable(err) {
			return err
		}
		if attempt == txAttempts {
			break
		}
		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("goalstore: transaction conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txRetryDelay):
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func lockPeers(tx *gorm.DB, householdID string) ([]Goal, error) {
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var peers []Goal
	if err := q.Where("household_id = ?", householdID).Order("created_at, id").Find(&peers).Error; err != nil {
		return nil, fmt.Errorf("load household goals: %w", err)
	}
	return peers, nil
}

// checkAllocation проверяет долю против соседей; excludeID пуст для новой цели
func (s *Store) checkAllocation(peers []Goal, excludeID string, pct float64) (calculations.AllocationResult, error) {
	exclude := uuid.Nil
	if excludeID != "" {
		id, err := uuid.Parse(excludeID)
		if err != nil {
			return calculations.AllocationResult{}, fmt.Errorf("%w: bad id %q", ErrInvalidGoal, excludeID)
		}
		exclude = id
	}
	res := calculations.ValidateAllocation(Snapshots(peers), exclude, pct)
	if !res.Valid {
		s.log.WithFields(logrus.Fields{
			"goal_id": excludeID,
			"total":   res.Total,
		}).Warn("goalstore: allocation rejected")
		return res, &AllocationError{Total: res.Total}
	}
	return res, nil
}

func activeTotal(peers []Goal, excludeID string) float64 {
	total := 0.0
	for _, p := range peers {
		if !p.IsPaused && p.ID != excludeID {
			total += p.IncomePercentage
		}
	}
	return total
}

// Create сохраняет новую цель, если ее доля укладывается в 100%
func (s *Store) Create(ctx context.Context, g *Goal) error {
	if g.HouseholdID == "" || g.TargetAmount < 0 || g.IncomePercentage < 0 || g.IncomePercentage > 100 {
		return ErrInvalidGoal
	}
	if g.TargetAmount == 0 && !g.IsSystemManaged {
		return fmt.Errorf("%w: zero target is reserved for system-managed goals", ErrInvalidGoal)
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	} else if _, err := uuid.Parse(g.ID); err != nil {
		return fmt.Errorf("%w: bad id %q", ErrInvalidGoal, g.ID)
	}

	return s.withHousehold(ctx, g.HouseholdID, func(tx *gorm.DB, peers []Goal) error {
		if !g.IsPaused {
			if _, err := s.checkAllocation(peers, "", g.IncomePercentage); err != nil {
				return err
			}
		}
		status := calculations.EvaluateGoalCompletion(g.Snapshot(), g.CurrentBalance, s.now())
		g.IsCompleted, g.CompletedAt = status.Completed, status.CompletedAt
		return tx.Create(g).Error
	})
}

// Get возвращает цель по id
func (s *Store) Get(ctx context.Context, goalID string) (*Goal, error) {
	var g Goal
	if err := s.db.WithContext(ctx).Where("id = ?", goalID).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, goalID)
		}
		return nil, err
	}
	return &g, nil
}

// ListByHousehold возвращает все цели домохозяйства
func (s *Store) ListByHousehold(ctx context.Context, householdID string) ([]Goal, error) {
	var goals []Goal
	err := s.db.WithContext(ctx).Where("household_id = ?", householdID).Order("created_at, id").Find(&goals).Error
	return goals, err
}

// SetAllocation меняет долю дохода цели. Отклонение возвращает *AllocationError
// вместе с рассчитанным итогом.
func (s *Store) SetAllocation(ctx context.Context, goalID string, pct float64) (calculations.AllocationResult, error) {
	if pct < 0 || pct > 100 {
		return calculations.AllocationResult{}, fmt.Errorf("%w: percentage %v", ErrInvalidGoal, pct)
	}
	var res calculations.AllocationResult
	err := s.withGoal(ctx, goalID, func(tx *gorm.DB, goal *Goal, peers []Goal) error {
		var err error
		if goal.IsPaused {
			// приостановленная цель не участвует в сумме: доля проверится при возобновлении
			res = calculations.AllocationResult{Valid: true, Total: activeTotal(peers, goal.ID)}
		} else if res, err = s.checkAllocation(peers, goal.ID, pct); err != nil {
			return err
		}
		return tx.Model(goal).Update("income_percentage", pct).Error
	})
	return res, err
}

// SetPaused приостанавливает или возобновляет цель; возобновление
// проверяет, что доля цели снова укладывается в 100%
func (s *Store) SetPaused(ctx context.Context, goalID string, paused bool) error {
	return s.withGoal(ctx, goalID, func(tx *gorm.DB, goal *Goal, peers []Goal) error {
		if goal.IsPaused == paused {
			return nil
		}
		if !paused {
			if _, err := s.checkAllocation(peers, goal.ID, goal.IncomePercentage); err != nil {
				return err
			}
		}
		return tx.Model(goal).Update("is_paused", paused).Error
	})
}

// ApplyBalance записывает новый баланс и пересчитывает признак выполнения
func (s *Store) ApplyBalance(ctx context.Context, goalID string, balance float64) (*Goal, error) {
	var out Goal
	err := s.withGoal(ctx, goalID, func(tx *gorm.DB, goal *Goal, _ []Goal) error {
		status := calculations.EvaluateGoalCompletion(goal.Snapshot(), balance, s.now())
		goal.CurrentBalance = balance
		goal.IsCompleted = status.Completed
		goal.CompletedAt = status.CompletedAt
		if err := tx.Model(goal).Select("current_balance", "is_completed", "completed_at").Updates(goal).Error; err != nil {
			return err
		}
		out = *goal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertEmergencyFund записывает рекомендацию в системную цель резервного
// фонда, создавая ее при необходимости. Доли других целей не меняются: если
// рекомендованная доля не помещается, возвращается *AllocationError.
func (s *Store) UpsertEmergencyFund(ctx context.Context, householdID string, rec calculations.EmergencyFundRecommendation) (*Goal, error) {
	var out Goal
	err := s.withHousehold(ctx, householdID, func(tx *gorm.DB, peers []Goal) error {
		var fund *Goal
		for i := range peers {
			if peers[i].IsSystemManaged {
				fund = &peers[i]
				break
			}
		}

		if fund == nil {
			if _, err := s.checkAllocation(peers, "", rec.IncomePercentage); err != nil {
				return err
			}
			fund = &Goal{
				ID:               uuid.New().String(),
				HouseholdID:      householdID,
				Name:             EmergencyFundName,
				TargetAmount:     rec.TargetAmount,
				IncomePercentage: rec.IncomePercentage,
				IsSystemManaged:  true,
			}
			if err := tx.Create(fund).Error; err != nil {
				return err
			}
			out = *fund
			return nil
		}

		if !fund.IsPaused {
			if _, err := s.checkAllocation(peers, fund.ID, rec.IncomePercentage); err != nil {
				return err
			}
		}
		status := calculations.EvaluateGoalCompletion(calculations.GoalSnapshot{
			TargetAmount: rec.TargetAmount,
			Completed:    fund.IsCompleted,
			CompletedAt:  fund.CompletedAt,
		}, fund.CurrentBalance, s.now())

		fund.TargetAmount = rec.TargetAmount
		fund.IncomePercentage = rec.IncomePercentage
		fund.IsCompleted = status.Completed
		fund.CompletedAt = status.CompletedAt
		if err := tx.Model(fund).
			Select("target_amount", "income_percentage", "is_completed", "completed_at").
			Updates(fund).Error; err != nil {
			return err
		}
		out = *fund
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
