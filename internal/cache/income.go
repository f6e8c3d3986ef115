package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// IncomeBasisCache хранит последнюю рассчитанную базу дохода домохозяйства
// на время TTL. Каждый расчет по переданным доходам перезаписывает значение.
type IncomeBasisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIncomeBasisCache(rdb *redis.Client, ttl time.Duration) *IncomeBasisCache {
	return &IncomeBasisCache{rdb: rdb, ttl: ttl}
}

func incomeKey(householdID string, windowMonths int) string {
	return fmt.Sprintf("income_basis:%s:%d", householdID, windowMonths)
}

// Get возвращает закэшированную базу; ok=false при промахе
func (c *IncomeBasisCache) Get(ctx context.Context, householdID string, windowMonths int) (float64, bool, error) {
	raw, err := c.rdb.Get(ctx, incomeKey(householdID, windowMonths)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt income basis for %s: %w", householdID, err)
	}
	return v, true, nil
}

// Set сохраняет базу дохода
func (c *IncomeBasisCache) Set(ctx context.Context, householdID string, windowMonths int, basis float64) error {
	return c.rdb.Set(ctx, incomeKey(householdID, windowMonths),
		strconv.FormatFloat(basis, 'f', -1, 64), c.ttl).Err()
}
