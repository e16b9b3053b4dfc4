package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/cognito/pkg/adapters/sqlite"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSink(t *testing.T) *sqlite.Sink {
	t.Helper()
	sink, err := sqlite.Open(filepath.Join(t.TempDir(), "cognito.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSink_AuditTrail(t *testing.T) {
	sink := openSink(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, sink.Append(ctx, ports.AuditRecord{Timestamp: at, WalkID: "w1", EventType: "WALK_STARTED"}))
	require.NoError(t, sink.Append(ctx, ports.AuditRecord{Timestamp: at, WalkID: "w1", EventType: "TRANSITION",
		Details: map[string]any{"from": "decode", "to": "contextualize"}}))
	require.NoError(t, sink.Append(ctx, ports.AuditRecord{Timestamp: at, WalkID: "w2", EventType: "WALK_STARTED"}))

	records, err := sink.Records(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "WALK_STARTED", records[0].EventType)
	assert.Equal(t, "contextualize", records[1].Details["to"])
	assert.True(t, at.Equal(records[1].Timestamp))
}

func TestSink_LessonsAndExamples(t *testing.T) {
	sink := openSink(t)
	ctx := context.Background()

	require.NoError(t, sink.SaveLesson(ctx, ports.Lesson{WalkID: "w1", Specialist: domain.Finance, Verdict: domain.VerdictPass, Block: "first"}))
	require.NoError(t, sink.SaveLesson(ctx, ports.Lesson{WalkID: "w2", Specialist: domain.Finance, Verdict: domain.VerdictFail, Block: "second"}))
	require.NoError(t, sink.SaveLesson(ctx, ports.Lesson{WalkID: "w3", Specialist: domain.Legal, Verdict: domain.VerdictPass, Block: "other"}))
	require.NoError(t, sink.LogExample(ctx, ports.TrainingExample{WalkID: "w1", Specialist: domain.Finance, Verdict: domain.VerdictPass, Prompt: "p", IdealResponse: "r"}))

	lessons, err := sink.Lessons(ctx, domain.Finance)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "second", lessons[0].Block)
	assert.Equal(t, domain.VerdictFail, lessons[0].Verdict)

	n, err := sink.CountExamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
