package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, US social security numbers and card numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\b\d{3}-\d{2}-\d{4}\b`,
	`\b(?:\d[ -]?){13,16}\b`,
}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks matches of the patterns in the conversation text of stored
// walks. The pending tool call and approval are left intact: an approved action must
// run with the arguments the human reviewed.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, walkID string, state *domain.State) error {
	// Clone so the walk the engine holds is untouched.
	cloned := state.Clone()
	cloned.RawInput = m.mask(cloned.RawInput)
	for i := range cloned.Messages {
		cloned.Messages[i].Content = m.mask(cloned.Messages[i].Content)
	}
	return m.next.Save(ctx, walkID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, walkID string) (*domain.State, error) {
	return m.next.Load(ctx, walkID)
}

func (m *piiMiddleware) Delete(ctx context.Context, walkID string) error {
	return m.next.Delete(ctx, walkID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
