package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
	"github.com/cloud-ru/mcp-household-finance-go/pkg/utils"
)

func TestMonthlyPaymentHandler(t *testing.T) {
	h := MonthlyPaymentHandler(testConfig(), testTracer)

	tests := []struct {
		name        string
		params      map[string]interface{}
		wantMonthly float64
		wantPayment float64
		wantError   bool
	}{
		{
			name:        "zero rate",
			params:      map[string]interface{}{"principal": 1200.0, "annual_rate_percent": 0.0, "months": 12.0},
			wantMonthly: 100,
			wantPayment: 100,
		},
		{
			name:        "30 year mortgage",
			params:      map[string]interface{}{"principal": 100000.0, "annual_rate_percent": 6.0, "months": 360.0},
			wantMonthly: 599.55,
			wantPayment: 599.55,
		},
		{
			name: "biweekly equivalent",
			params: map[string]interface{}{
				"principal": 100000.0, "annual_rate_percent": 6.0, "months": 360.0,
				"payment_frequency": "biweekly",
			},
			wantMonthly: 599.55,
			wantPayment: 276.72,
		},
		{
			name:      "missing principal",
			params:    map[string]interface{}{"annual_rate_percent": 6.0, "months": 360.0},
			wantError: true,
		},
		{
			name:      "negative principal",
			params:    map[string]interface{}{"principal": -1.0, "annual_rate_percent": 6.0, "months": 12.0},
			wantError: true,
		},
		{
			name:      "zero months",
			params:    map[string]interface{}{"principal": 1000.0, "annual_rate_percent": 6.0, "months": 0.0},
			wantError: true,
		},
		{
			name: "unknown frequency",
			params: map[string]interface{}{
				"principal": 1000.0, "annual_rate_percent": 6.0, "months": 12.0,
				"payment_frequency": "yearly",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h(context.Background(), tt.params)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := res.(*MonthlyPaymentResult)
			assertClose(t, got.MonthlyPayment, tt.wantMonthly, 0.005, "monthly_payment")
			assertClose(t, got.Payment, tt.wantPayment, 0.005, "payment")
		})
	}
}

func TestMonthlyPaymentHandler_UnknownFrequencyIsTyped(t *testing.T) {
	h := MonthlyPaymentHandler(testConfig(), testTracer)
	_, err := h(context.Background(), map[string]interface{}{
		"principal": 1000.0, "annual_rate_percent": 6.0, "months": 12.0, "payment_frequency": "quarterly",
	})
	if !errors.Is(err, calculations.ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
}

func TestAmortizationScheduleHandler(t *testing.T) {
	h := AmortizationScheduleHandler(testConfig(), testTracer)

	res, err := h(context.Background(), map[string]interface{}{
		"principal": 1200.0, "annual_rate_percent": 0.0, "months": 12.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := res.(*calculations.CalculationResult)
	if len(result.Schedule) != 12 {
		t.Fatalf("schedule length = %d, want 12", len(result.Schedule))
	}
	summary := result.Summary.(calculations.LoanSummary)
	assertClose(t, summary.MonthlyPayment, 100, 1e-9, "monthly_payment")
	assertClose(t, summary.TotalPaid, 1200, 1e-9, "total_paid")
	assertClose(t, summary.TotalInterest, 0, 1e-9, "total_interest")
	if last := result.Schedule[11]; last.RemainingPrincipal != 0 {
		t.Errorf("last remaining = %v, want 0", last.RemainingPrincipal)
	}

	// значения округлены до копеек
	res, err = h(context.Background(), map[string]interface{}{
		"principal": 100000.0, "annual_rate_percent": 6.0, "months": 360.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range res.(*calculations.CalculationResult).Schedule[:5] {
		if utils.Round2(e.Interest) != e.Interest || utils.Round2(e.RemainingPrincipal) != e.RemainingPrincipal {
			t.Errorf("month %d not rounded to cents: %+v", e.Month, e)
		}
	}
}

func TestConvertFrequencyHandler(t *testing.T) {
	h := ConvertFrequencyHandler(testTracer)

	tests := []struct {
		name      string
		params    map[string]interface{}
		wantMonth float64
		wantConv  float64
		wantError bool
	}{
		{
			name:      "biweekly to monthly",
			params:    map[string]interface{}{"amount": 100.0, "from": "biweekly"},
			wantMonth: 216.67,
			wantConv:  216.67,
		},
		{
			name:      "weekly to biweekly",
			params:    map[string]interface{}{"amount": 100.0, "from": "weekly", "to": "biweekly"},
			wantMonth: 433.33,
			wantConv:  200,
		},
		{
			name:      "monthly to semimonthly",
			params:    map[string]interface{}{"amount": 1000.0, "to": "semimonthly"},
			wantMonth: 1000,
			wantConv:  500,
		},
		{
			name:      "non-positive amount maps to zero",
			params:    map[string]interface{}{"amount": -5.0, "from": "daily"},
			wantMonth: 0,
			wantConv:  0,
		},
		{
			name:      "unknown tag",
			params:    map[string]interface{}{"amount": 100.0, "from": "fortnightly"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h(context.Background(), tt.params)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := res.(*ConvertFrequencyResult)
			assertClose(t, got.MonthlyAmount, tt.wantMonth, 1e-9, "monthly_amount")
			assertClose(t, got.ConvertedAmount, tt.wantConv, 1e-9, "converted_amount")
		})
	}
}

func TestDebtProjectionHandler(t *testing.T) {
	h := DebtProjectionHandler(testConfig(), testTracer)

	base := func(extra map[string]interface{}) map[string]interface{} {
		p := map[string]interface{}{
			"principal":           1200.0,
			"annual_rate_percent": 0.0,
			"term_months":         12.0,
			"first_payment_date":  "2024-01-01",
		}
		for k, v := range extra {
			p[k] = v
		}
		return p
	}

	t.Run("half paid", func(t *testing.T) {
		res, err := h(context.Background(), base(map[string]interface{}{"as_of": "2024-07-01"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := res.(*DebtProjectionResult)
		assertClose(t, got.MonthlyPayment, 100, 1e-9, "monthly_payment")
		assertClose(t, got.State.PrincipalPaid, 600, 1e-9, "principal_paid")
		assertClose(t, got.State.CurrentBalance, 600, 1e-9, "current_balance")
		if got.Forecast.MonthsRemaining == nil || *got.Forecast.MonthsRemaining != 6 {
			t.Fatalf("months_remaining = %v, want 6", got.Forecast.MonthsRemaining)
		}
		assertClose(t, got.Forecast.ProgressPercent, 50, 1e-9, "progress")
		want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		if got.Forecast.PayoffDate == nil || !got.Forecast.PayoffDate.Equal(want) {
			t.Errorf("payoff_date = %v, want %v", got.Forecast.PayoffDate, want)
		}
		if got.Message != "" {
			t.Errorf("unexpected message %q", got.Message)
		}
	})

	t.Run("paid off by projection", func(t *testing.T) {
		res, err := h(context.Background(), base(map[string]interface{}{"as_of": "2026-01-01"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := res.(*DebtProjectionResult)
		assertClose(t, got.State.PrincipalPaid, 1200, 1e-9, "principal_paid")
		assertClose(t, got.State.CurrentBalance, 0, 1e-9, "current_balance")
		if got.Forecast.MonthsRemaining == nil || *got.Forecast.MonthsRemaining != 0 {
			t.Errorf("months_remaining = %v, want 0", got.Forecast.MonthsRemaining)
		}
		assertClose(t, got.Forecast.ProgressPercent, 100, 1e-9, "progress")
	})

	t.Run("payment below interest is undetermined", func(t *testing.T) {
		res, err := h(context.Background(), map[string]interface{}{
			"principal":           10000.0,
			"annual_rate_percent": 24.0,
			"first_payment_date":  "2024-01-01",
			"payment_amount":      100.0,
			"as_of":               "2024-06-01",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := res.(*DebtProjectionResult)
		if got.Forecast.MonthsRemaining != nil {
			t.Errorf("months_remaining = %v, want nil", *got.Forecast.MonthsRemaining)
		}
		if got.Message == "" {
			t.Error("expected an explanatory message")
		}
		if !got.State.NegativeAmortization {
			t.Error("expected negative amortization flag")
		}
		assertClose(t, got.State.CurrentBalance, 10000, 1e-9, "balance never grows")
	})

	t.Run("validation", func(t *testing.T) {
		bad := []map[string]interface{}{
			base(map[string]interface{}{"first_payment_date": "01/01/2024"}),
			base(map[string]interface{}{"payment_frequency": "hourly"}),
			base(map[string]interface{}{"term_months": 12.5}),
			base(map[string]interface{}{"payment_amount": -10.0}),
			base(map[string]interface{}{"principal": 0.0}),
			base(map[string]interface{}{"as_of": "yesterday"}),
		}
		for i, p := range bad {
			if _, err := h(context.Background(), p); err == nil {
				t.Errorf("case %d: expected error, got nil", i)
			}
		}
	})

	t.Run("paid off loan with zero principal is accepted", func(t *testing.T) {
		res, err := h(context.Background(), base(map[string]interface{}{
			"principal": 0.0, "is_paid_off": true, "as_of": "2024-03-01",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := res.(*DebtProjectionResult)
		if got.Forecast.MonthsRemaining == nil || *got.Forecast.MonthsRemaining != 0 {
			t.Errorf("months_remaining = %v, want 0", got.Forecast.MonthsRemaining)
		}
		assertClose(t, got.Forecast.ProgressPercent, 0, 1e-9, "progress with zero principal")
	})
}

func TestDebtProjectionHandler_StableValidationOrder(t *testing.T) {
	h := DebtProjectionHandler(testConfig(), testTracer)
	params := map[string]interface{}{
		"principal":           1200.0,
		"annual_rate_percent": 0.0,
		"first_payment_date":  "2024-01-01",
		"payment_amount":      -1.0,
		"principal_paid":      -1.0,
		"interest_paid":       -1.0,
	}

	for i := 0; i < 20; i++ {
		_, err := h(context.Background(), params)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(err.Error(), "payment_amount") {
			t.Fatalf("run %d: error = %q, want the payment_amount check first", i, err)
		}
	}
}
