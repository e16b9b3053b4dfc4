package domain

import (
	"errors"
	"testing"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw     string
		want    Decision
		wantErr bool
	}{
		{"APPROVE", DecisionApprove, false},
		{"approve", DecisionApprove, false},
		{" Reject ", DecisionReject, false},
		{"reject", DecisionReject, false},
		{"maybe", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDecision(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownDecision) {
				t.Errorf("ParseDecision(%q) err = %v, want ErrUnknownDecision", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDecision(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestClassifyCritique(t *testing.T) {
	tests := map[string]Verdict{
		"PERFECT: Response is safe.":        VerdictPass,
		"pass - looks fine":                 VerdictPass,
		"CRITICAL FAILURE: needs revision":  VerdictFail,
		"PASS overall but one check FAILED": VerdictFail,
		"":                                  VerdictFail,
		"The answer is incomplete.":         VerdictFail,
	}
	for report, want := range tests {
		if got := ClassifyCritique(report); got != want {
			t.Errorf("ClassifyCritique(%q) = %s, want %s", report, got, want)
		}
	}
}

func TestParseSpecialist(t *testing.T) {
	if s, ok := ParseSpecialist(" Finance_Expert "); !ok || s != Finance {
		t.Errorf("expected finance_expert, got %q %v", s, ok)
	}
	if _, ok := ParseSpecialist("nonexistent_expert"); ok {
		t.Error("unknown specialist accepted")
	}
}
