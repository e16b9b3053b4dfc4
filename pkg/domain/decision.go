package domain

import (
	"fmt"
	"strings"
)

// Decision is the human verdict on a pending critical action.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ParseDecision accepts APPROVE or REJECT in any letter case.
func ParseDecision(raw string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(raw))); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, raw)
	}
}

// Verdict is the outcome of the critique stage.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// ClassifyCritique maps a free-text critique report to a verdict.
// A report passes when it says PASS or PERFECT and never mentions FAIL.
func ClassifyCritique(report string) Verdict {
	up := strings.ToUpper(report)
	if strings.Contains(up, "FAIL") {
		return VerdictFail
	}
	if strings.Contains(up, "PERFECT") || strings.Contains(up, "PASS") {
		return VerdictPass
	}
	return VerdictFail
}
