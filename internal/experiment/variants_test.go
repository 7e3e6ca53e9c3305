package experiment

import (
	"strings"
	"testing"
)

func TestPickAt_Boundaries(t *testing.T) {
	tests := []struct {
		draw float64
		want VariantID
	}{
		{0.0, VariantBaseline},
		{0.49999, VariantBaseline},
		{0.50, VariantFewShot},
		{0.74999, VariantFewShot},
		{0.75, VariantChainOfThought},
		{0.89999, VariantChainOfThought},
		{0.90, VariantUncertainty},
		{0.99999, VariantUncertainty},
	}

	for _, tt := range tests {
		if got := pickAt(tt.draw); got.ID != tt.want {
			t.Errorf("pickAt(%v) = %s, want %s", tt.draw, got.ID, tt.want)
		}
	}
}

func TestVariants_InstructionComposition(t *testing.T) {
	// Every non-baseline variant layers its addition on top of the baseline
	// instruction rather than replacing it.
	for _, wv := range allocation {
		v := wv.variant
		if !strings.Contains(v.Instruction, "fall detection") {
			t.Errorf("variant %s lost the baseline instruction", v.ID)
		}
		if v.Name == "" {
			t.Errorf("variant %s has no display name", v.ID)
		}
	}

	if !strings.Contains(pickAt(0.6).Instruction, "EXAMPLES:") {
		t.Error("few-shot variant missing examples block")
	}
	if !strings.Contains(pickAt(0.8).Instruction, "step-by-step") {
		t.Error("chain-of-thought variant missing reasoning block")
	}
	if !strings.Contains(pickAt(0.95).Instruction, "conservative with confidence") {
		t.Error("uncertainty variant missing conservatism block")
	}
}

func TestSelector_AlwaysReturnsKnownVariant(t *testing.T) {
	s := NewSelector()
	known := map[VariantID]bool{
		VariantBaseline:       true,
		VariantFewShot:        true,
		VariantChainOfThought: true,
		VariantUncertainty:    true,
	}
	for i := 0; i < 200; i++ {
		if v := s.Pick(); !known[v.ID] {
			t.Fatalf("Pick returned unknown variant %q", v.ID)
		}
	}
}
