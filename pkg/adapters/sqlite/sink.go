// Package sqlite stores the audit trail, knowledge lessons and training examples of
// finished walks in a SQLite database (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS audit_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		walk_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		details TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_walk ON audit_records(walk_id)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		walk_id TEXT NOT NULL,
		specialist TEXT NOT NULL,
		verdict TEXT NOT NULL,
		block TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS training_examples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		walk_id TEXT NOT NULL,
		specialist TEXT NOT NULL,
		verdict TEXT NOT NULL,
		prompt TEXT NOT NULL,
		ideal_response TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
}

// Sink implements ports.AuditSink, ports.KnowledgeSink and ports.TrainingSink.
type Sink struct {
	db *sql.DB
}

var (
	_ ports.AuditSink     = (*Sink)(nil)
	_ ports.KnowledgeSink = (*Sink)(nil)
	_ ports.TrainingSink  = (*Sink)(nil)
)

// Open opens the database at path and creates the schema.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Sink{db: db}, nil
}

// Close releases the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Sink) Append(ctx context.Context, r ports.AuditRecord) error {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records (walk_id, event_type, details, created_at) VALUES (?, ?, ?, ?)`,
		r.WalkID, r.EventType, string(details), stamp(r.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (s *Sink) SaveLesson(ctx context.Context, l ports.Lesson) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (walk_id, specialist, verdict, block, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.WalkID, string(l.Specialist), string(l.Verdict), l.Block, stamp(l.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	return nil
}

func (s *Sink) LogExample(ctx context.Context, e ports.TrainingExample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_examples (walk_id, specialist, verdict, prompt, ideal_response, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.WalkID, string(e.Specialist), string(e.Verdict), e.Prompt, e.IdealResponse, stamp(e.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert training example: %w", err)
	}
	return nil
}

// Records returns the audit trail of one walk in insertion order.
func (s *Sink) Records(ctx context.Context, walkID string) ([]ports.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT walk_id, event_type, details, created_at FROM audit_records WHERE walk_id = ? ORDER BY id`, walkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []ports.AuditRecord
	for rows.Next() {
		var r ports.AuditRecord
		var details, created string
		if err := rows.Scan(&r.WalkID, &r.EventType, &details, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Lessons returns the lessons recorded for a specialist, newest first.
func (s *Sink) Lessons(ctx context.Context, specialist domain.Specialist) ([]ports.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT walk_id, specialist, verdict, block, created_at FROM lessons WHERE specialist = ? ORDER BY id DESC`, string(specialist))
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var out []ports.Lesson
	for rows.Next() {
		var l ports.Lesson
		var created string
		if err := rows.Scan(&l.WalkID, &l.Specialist, &l.Verdict, &l.Block, &created); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountExamples returns how many training examples were logged.
func (s *Sink) CountExamples(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count training examples: %w", err)
	}
	return n, nil
}
