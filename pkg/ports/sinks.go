package ports

import (
	"context"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
)

// AuditRecord is one append-only audit entry.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	WalkID    string         `json:"walk_id"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details,omitempty"`
}

// AuditSink receives one record per transition. Writes are best-effort.
type AuditSink interface {
	Append(ctx context.Context, record AuditRecord) error
}

// Lesson is a generalized takeaway produced by knowledge fusion.
type Lesson struct {
	WalkID     string            `json:"walk_id"`
	Specialist domain.Specialist `json:"specialist"`
	Verdict    domain.Verdict    `json:"verdict"`
	Block      string            `json:"block"`
	Timestamp  time.Time         `json:"timestamp"`
}

// KnowledgeSink stores lessons.
type KnowledgeSink interface {
	SaveLesson(ctx context.Context, lesson Lesson) error
}

// TrainingExample pairs a prompt with the answer the walk settled on.
type TrainingExample struct {
	WalkID        string            `json:"walk_id"`
	Specialist    domain.Specialist `json:"specialist"`
	Verdict       domain.Verdict    `json:"verdict"`
	Prompt        string            `json:"prompt"`
	IdealResponse string            `json:"ideal_response"`
	Timestamp     time.Time         `json:"timestamp"`
}

// TrainingSink stores training examples.
type TrainingSink interface {
	LogExample(ctx context.Context, example TrainingExample) error
}
