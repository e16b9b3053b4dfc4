package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/pkg/domain"
)

func TestAnswerMarkdown_Suspended(t *testing.T) {
	a := &cognito.Answer{
		WalkID:         "w-1",
		SpecialistUsed: domain.GeneralQA,
		PendingApproval: &domain.PendingApproval{
			ToolCall: domain.ToolCall{Name: "send_email", Args: map[string]any{"to": "ops@example.com", "subject": "outage"}},
		},
	}
	out := AnswerMarkdown(a)
	for _, want := range []string{"Approval required", "`send_email`", "| subject | outage |", "| to | ops@example.com |", "`w-1`"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "subject") > strings.Index(out, "| to |") {
		t.Error("arguments should be listed in key order")
	}
}

func TestAnswerMarkdown_Terminated(t *testing.T) {
	a := &cognito.Answer{
		FinalAnswer:    "Paris.",
		SpecialistUsed: domain.GeneralQA,
		RiskScore:      0.2,
		AuditHash:      "abc",
	}
	out := AnswerMarkdown(a)
	if !strings.HasPrefix(out, "Paris.") {
		t.Errorf("answer should lead, got:\n%s", out)
	}
	if !strings.Contains(out, "risk: 0.20") {
		t.Errorf("missing risk line in:\n%s", out)
	}
}

func TestRenderers(t *testing.T) {
	if got := PlainRenderer("# hi"); got != "# hi" {
		t.Errorf("PlainRenderer changed input: %q", got)
	}
	if got := NewRenderer(40)("hello"); !strings.Contains(got, "hello") {
		t.Errorf("rendered output lost text: %q", got)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "did:test:x")
	if !strings.Contains(buf.String(), "did:test:x") {
		t.Errorf("banner should show identity, got %q", buf.String())
	}
}
