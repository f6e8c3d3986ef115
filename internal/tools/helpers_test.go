package tools

import (
	"context"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
	"github.com/cloud-ru/mcp-household-finance-go/internal/config"
	"github.com/cloud-ru/mcp-household-finance-go/internal/goalstore"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func testConfig() *config.Config {
	return &config.Config{
		MaxPrincipal:       1e9,
		MaxMonths:          600,
		MaxRate:            200,
		MaxBalanceCap:      1e12,
		ForecastMonths:     1200,
		IncomeWindowMonths: 3,
		EmergencyFund:      calculations.DefaultEmergencyFundPolicy(),
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestStore(t *testing.T) *goalstore.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := goalstore.Open("sqlite", dsn, quietLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := goalstore.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return goalstore.New(db, quietLogger())
}

func createGoal(t *testing.T, s *goalstore.Store, household string, pct float64) *goalstore.Goal {
	t.Helper()
	g := &goalstore.Goal{HouseholdID: household, Name: "goal", TargetAmount: 1000, IncomePercentage: pct}
	if err := s.Create(context.Background(), g); err != nil {
		t.Fatalf("Create(%v%%): %v", pct, err)
	}
	return g
}

func assertClose(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", what, got, want, tol)
	}
}
