package trust

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AnswerPrefixRunes is how much of the final answer enters the audit snapshot.
const AnswerPrefixRunes = 100

// AuditSnapshot is the fixed set of fields covered by the audit hash.
// Field order is the struct order, which keeps the JSON canonical.
type AuditSnapshot struct {
	OriginalQuery     string  `json:"original_query"`
	FinalAnswerPrefix string  `json:"final_answer_prefix"`
	SpecialistUsed    string  `json:"specialist_used"`
	RiskScore         float64 `json:"risk_score"`
	Signature         string  `json:"signature"`
}

// NewAuditSnapshot clips the final answer to AnswerPrefixRunes.
func NewAuditSnapshot(query, answer, specialist string, risk float64, signature string) AuditSnapshot {
	prefix := []rune(answer)
	if len(prefix) > AnswerPrefixRunes {
		prefix = prefix[:AnswerPrefixRunes]
	}
	return AuditSnapshot{
		OriginalQuery:     query,
		FinalAnswerPrefix: string(prefix),
		SpecialistUsed:    specialist,
		RiskScore:         risk,
		Signature:         signature,
	}
}

// Hasher computes the audit hash of a snapshot.
type Hasher interface {
	Hash(snapshot AuditSnapshot) (string, error)
}

// SHA256Hasher hashes the canonical JSON encoding of a snapshot.
type SHA256Hasher struct{}

// Hash returns the hex SHA-256 of the snapshot. Non-finite risk scores cannot be
// encoded and are reported as errors.
func (SHA256Hasher) Hash(snapshot AuditSnapshot) (string, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode audit snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
