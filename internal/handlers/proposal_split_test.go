package handlers

import (
	"math"
	"testing"
	"time"
)

func TestDefaultMilestoneSplit_SumsExactly(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := start.AddDate(0, 0, 40)

	for _, total := range []float64{9000, 5000, 100, 999.99, 0.03} {
		defs := defaultMilestoneSplit(total, start, deadline)
		if len(defs) != 3 {
			t.Fatalf("expected 3 phases, got %d", len(defs))
		}

		var sum float64
		for _, d := range defs {
			sum += d.Amount
		}
		if math.Abs(sum-total) > 1e-9 {
			t.Fatalf("total %v: phases sum to %v", total, sum)
		}
	}
}

func TestDefaultMilestoneSplit_Proportions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := start.AddDate(0, 0, 40)

	defs := defaultMilestoneSplit(9000, start, deadline)

	if defs[0].Amount != 2250 {
		t.Fatalf("first phase = %v, want 2250", defs[0].Amount)
	}
	if defs[1].Amount != 4500 {
		t.Fatalf("second phase = %v, want 4500", defs[1].Amount)
	}
	if defs[2].Amount != 2250 {
		t.Fatalf("third phase = %v, want 2250", defs[2].Amount)
	}

	// last phase is due on the deadline itself
	if defs[2].DueDate != deadline.Format("2006-01-02") {
		t.Fatalf("final due date = %s, want %s", defs[2].DueDate, deadline.Format("2006-01-02"))
	}

	// due dates are ordered
	for i := 1; i < len(defs); i++ {
		if defs[i].DueDate < defs[i-1].DueDate {
			t.Fatalf("due dates out of order: %s before %s", defs[i].DueDate, defs[i-1].DueDate)
		}
	}
}

func TestValidateMilestoneSum(t *testing.T) {
	defs := []MilestoneDef{
		{Title: "a", Amount: 2250},
		{Title: "b", Amount: 4500},
		{Title: "c", Amount: 2250},
	}

	if err := validateMilestoneSum(defs, 9000); err != nil {
		t.Fatalf("exact sum rejected: %v", err)
	}
	// within the 1-unit rounding tolerance
	if err := validateMilestoneSum(defs, 9000.80); err != nil {
		t.Fatalf("sum within tolerance rejected: %v", err)
	}
	// beyond the tolerance
	if err := validateMilestoneSum(defs, 9002); err == nil {
		t.Fatalf("expected error for sum outside tolerance")
	}
}

func TestValidateMilestoneSum_RejectsNonPositive(t *testing.T) {
	defs := []MilestoneDef{{Title: "a", Amount: 0}}
	if err := validateMilestoneSum(defs, 0); err == nil {
		t.Fatalf("expected error for non-positive amount")
	}
}
