package oracle

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
)

// routeKeywords is checked in order; the first specialist with a matching word wins.
var routeKeywords = []struct {
	specialist domain.Specialist
	stems      []string
}{
	{domain.Finance, []string{"tax", "invest", "stock", "portfolio", "finance", "financial", "retirement", "dividend"}},
	{domain.Legal, []string{"legal", "law", "contract", "lawsuit", "court", "attorney", "copyright"}},
	{domain.Health, []string{"health", "symptom", "medical", "doctor", "medication", "diagnos", "disease"}},
	{domain.Fitness, []string{"fitness", "workout", "exercise", "calorie", "gym", "running"}},
	{domain.Business, []string{"business", "startup", "marketing", "revenue", "customer", "pricing"}},
}

// KeywordRoute picks a specialist from the words of query, defaulting to general_qa.
func KeywordRoute(query string) domain.Specialist {
	words := words(query)
	for _, r := range routeKeywords {
		for _, w := range words {
			for _, stem := range r.stems {
				if strings.HasPrefix(w, stem) {
					return r.specialist
				}
			}
		}
	}
	return domain.DefaultSpecialist
}

// Keyword is a deterministic, offline oracle. It is the default back-end and the one
// the test-suite runs against.
type Keyword struct{}

// NewKeyword returns the offline oracle.
func NewKeyword() *Keyword { return &Keyword{} }

// Invoke answers according to the prompt purpose.
func (k *Keyword) Invoke(ctx context.Context, p ports.Prompt) (ports.Completion, error) {
	if err := ctx.Err(); err != nil {
		return ports.Completion{}, err
	}
	query := firstUser(p.Messages)

	switch p.Purpose {
	case ports.PurposeRouting:
		return ports.Completion{Content: string(KeywordRoute(query))}, nil
	case ports.PurposeSpecialist:
		return k.specialist(p.Specialist, query, p.Messages), nil
	case ports.PurposeCritique:
		return ports.Completion{Content: critique(p.Messages)}, nil
	case ports.PurposeFusion:
		return ports.Completion{Content: fmt.Sprintf(
			"GENERALIZATION: For %s queries like '%s...', ground the answer in tool data and lead with the disclaimer.",
			p.Specialist, clip(query, 40))}, nil
	case ports.PurposeTraining:
		last, _ := lastMessage(p.Messages)
		return ports.Completion{Content: fmt.Sprintf(
			"TRAINING PROMPT (Expert: %s): %s | IDEAL RESPONSE: %s",
			p.Specialist, query, clip(last.Content, 200))}, nil
	case ports.PurposeSpeculative:
		task, _ := lastMessage(p.Messages)
		return ports.Completion{ToolCall: &ports.RawToolCall{
			Name: registry.ToolSearch,
			Args: map[string]any{"query": task.Content},
		}}, nil
	default:
		return ports.Completion{}, fmt.Errorf("keyword oracle: unsupported purpose %q", p.Purpose)
	}
}

func (k *Keyword) specialist(s domain.Specialist, query string, history []domain.Message) ports.Completion {
	if hasKind(history, domain.KindRejection) {
		return ports.Completion{Content: "The proposed action was declined during human review and was not performed. " +
			"I can outline safer alternatives or the manual steps instead."}
	}
	if hasKind(history, domain.KindToolResult) || hasKind(history, domain.KindToolError) {
		return ports.Completion{Content: "I have analyzed your query based on established principles and the tool output above."}
	}
	if call := criticalIntent(query); call != nil {
		return ports.Completion{ToolCall: call}
	}
	lower := strings.ToLower(query)
	if strings.Contains(lower, "data") || strings.Contains(lower, "latest") {
		return ports.Completion{ToolCall: &ports.RawToolCall{
			Name: domainTool(s),
			Args: map[string]any{"query": query},
		}}
	}
	return ports.Completion{Content: "I have analyzed your query based on established principles."}
}

func domainTool(s domain.Specialist) string {
	switch s {
	case domain.Finance:
		return registry.ToolFinance
	case domain.Legal:
		return registry.ToolLegal
	case domain.Fitness:
		return registry.ToolFitness
	default:
		return registry.ToolSearch
	}
}

// criticalIntent spots requests for irreversible actions.
func criticalIntent(query string) *ports.RawToolCall {
	lower := strings.ToLower(query)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("delete", "drop", "remove") && has("record", "database", "row"):
		return &ports.RawToolCall{Name: registry.ToolDeleteDatabaseRecord, Args: map[string]any{"record": query}}
	case has("send") && has("email", "e-mail"):
		to := "unspecified"
		for _, w := range strings.Fields(query) {
			if strings.Contains(w, "@") {
				to = strings.Trim(w, ".,;:!?")
				break
			}
		}
		return &ports.RawToolCall{Name: registry.ToolSendEmail, Args: map[string]any{"to": to, "body": query}}
	case has("run", "execute") && has("code", "script"):
		return &ports.RawToolCall{Name: registry.ToolCodeExecutor, Args: map[string]any{"code": query}}
	}
	return nil
}

func critique(history []domain.Message) string {
	last, ok := lastMessage(history)
	switch {
	case !ok || strings.TrimSpace(last.Content) == "":
		return "CRITICAL FAILURE: The answer is empty."
	case last.Kind == domain.KindToolError:
		return "CRITICAL FAILURE: The tool step errored; the answer needs revision."
	case strings.Contains(last.Content, domain.RiskBanner):
		return "PERFECT: Response is safe, accurate, and includes all mandatory warnings."
	default:
		return "PERFECT: Answer is accurate, relevant, and well-structured."
	}
}

func firstUser(history []domain.Message) string {
	for _, m := range history {
		if m.Role == domain.RoleUser {
			return m.Content
		}
	}
	return ""
}

func lastMessage(history []domain.Message) (domain.Message, bool) {
	if len(history) == 0 {
		return domain.Message{}, false
	}
	return history[len(history)-1], true
}

func hasKind(history []domain.Message, kind domain.MessageKind) bool {
	for _, m := range history {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
