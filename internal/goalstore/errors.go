package goalstore

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound           = errors.New("goal not found")
	ErrAllocationExceeded = errors.New("income allocation exceeds limit")
	ErrInvalidGoal        = errors.New("invalid goal")
	// ErrConflict: транзакция не прошла из-за блокировок; запрос можно повторить
	ErrConflict = errors.New("goal update conflict, retry")
)

// Коды MySQL: взаимная блокировка и таймаут ожидания блокировки
const (
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
)

func isRetryable(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
}

// AllocationError несет итоговую сумму долей, отклоненную проверкой
type AllocationError struct {
	Total float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("total allocation would be %.1f%%", e.Total)
}

func (e *AllocationError) Unwrap() error { return ErrAllocationExceeded }
