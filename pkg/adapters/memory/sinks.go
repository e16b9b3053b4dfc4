package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/cognito/pkg/ports"
)

// DefaultAuditCapacity is how many records the audit ring keeps.
const DefaultAuditCapacity = 4096

// AuditLog is a bounded ring of audit records. The oldest records are dropped first.
type AuditLog struct {
	mu      sync.Mutex
	records []ports.AuditRecord
	next    int
	full    bool
}

// NewAuditLog creates a ring holding up to capacity records.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{records: make([]ports.AuditRecord, capacity)}
}

// Append implements ports.AuditSink.
func (l *AuditLog) Append(_ context.Context, r ports.AuditRecord) error {
	r.Details = maps.Clone(r.Details)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[l.next] = r
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Records returns the retained records, oldest first.
func (l *AuditLog) Records() []ports.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]ports.AuditRecord(nil), l.records[:l.next]...)
	}
	out := make([]ports.AuditRecord, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	return append(out, l.records[:l.next]...)
}

// ForWalk returns the retained records of one walk, oldest first.
func (l *AuditLog) ForWalk(walkID string) []ports.AuditRecord {
	var out []ports.AuditRecord
	for _, r := range l.Records() {
		if r.WalkID == walkID {
			out = append(out, r)
		}
	}
	return out
}

// Knowledge implements ports.KnowledgeSink in memory.
type Knowledge struct {
	mu      sync.Mutex
	lessons []ports.Lesson
}

// NewKnowledge creates an empty lesson store.
func NewKnowledge() *Knowledge { return &Knowledge{} }

// SaveLesson appends the lesson.
func (k *Knowledge) SaveLesson(_ context.Context, lesson ports.Lesson) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lessons = append(k.lessons, lesson)
	return nil
}

// Lessons returns every saved lesson.
func (k *Knowledge) Lessons() []ports.Lesson {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]ports.Lesson(nil), k.lessons...)
}

// Training implements ports.TrainingSink in memory.
type Training struct {
	mu       sync.Mutex
	examples []ports.TrainingExample
}

// NewTraining creates an empty training log.
func NewTraining() *Training { return &Training{} }

// LogExample appends the example.
func (t *Training) LogExample(_ context.Context, ex ports.TrainingExample) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.examples = append(t.examples, ex)
	return nil
}

// Examples returns every logged example.
func (t *Training) Examples() []ports.TrainingExample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ports.TrainingExample(nil), t.examples...)
}
