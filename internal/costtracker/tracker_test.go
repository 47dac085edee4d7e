package costtracker

import (
	"context"
	"errors"
	"testing"
)

func TestRecordUsageAccumulates(t *testing.T) {
	tr := New(DefaultPricingTable(), Ceiling{})
	ctx := context.Background()

	if err := tr.RecordUsage(ctx, "gpt-4o-mini", Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.RecordUsage(ctx, "gpt-4o-mini", Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := tr.Summary()
	if s.TotalTokens != 165 || s.CallCount != 2 {
		t.Fatalf("expected accumulated totals, got %+v", s)
	}
	if s.EstimatedCostUSD <= 0 {
		t.Fatalf("expected nonzero cost for known model, got %v", s.EstimatedCostUSD)
	}
}

func TestRecordUsageUnknownModelYieldsZeroCost(t *testing.T) {
	tr := New(DefaultPricingTable(), Ceiling{})
	if err := tr.RecordUsage(context.Background(), "some-unlisted-model", Usage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := tr.Summary()
	if s.EstimatedCostUSD != 0 {
		t.Fatalf("expected zero cost for unknown model, got %v", s.EstimatedCostUSD)
	}
	if s.TotalTokens != 2000 {
		t.Fatalf("expected tokens still accumulated, got %d", s.TotalTokens)
	}
}

func TestRecordUsageTripsCostCeiling(t *testing.T) {
	tr := New(DefaultPricingTable(), Ceiling{MaxCostUSD: 0.0001})
	err := tr.RecordUsage(context.Background(), "gpt-4o", Usage{PromptTokens: 100000, CompletionTokens: 100000, TotalTokens: 200000}, 0)
	var budgetErr *BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
}

func TestRecordUsageTripsTokenCeiling(t *testing.T) {
	tr := New(DefaultPricingTable(), Ceiling{MaxTokens: 100})
	err := tr.RecordUsage(context.Background(), "gpt-4o-mini", Usage{PromptTokens: 80, CompletionTokens: 80, TotalTokens: 160}, 0)
	var budgetErr *BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
}

func TestResetZeroesSummary(t *testing.T) {
	tr := New(DefaultPricingTable(), Ceiling{})
	_ = tr.RecordUsage(context.Background(), "gpt-4o-mini", Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}, 0)
	tr.Reset()
	s := tr.Summary()
	if s.TotalTokens != 0 || s.CallCount != 0 || s.EstimatedCostUSD != 0 {
		t.Fatalf("expected zeroed summary after reset, got %+v", s)
	}
}
