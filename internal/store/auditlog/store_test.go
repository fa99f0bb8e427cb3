package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit", "aitrader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, Entry{
		TraceID: "t1", Symbol: "BTCUSDT", Provider: "openai:gpt-4o",
		Payload: `{"symbol":"BTCUSDT"}`, RawResponse: `{"decision":"hold"}`,
		Decision: "hold", Reason: "flat", Outcome: "skipped", SkipReason: "hold",
		CreatedAt: base,
	}))
	require.NoError(t, s.Append(ctx, Entry{
		TraceID: "t2", Symbol: "BTCUSDT", Decision: "buy", Reason: "breakout",
		Outcome: "executed", Warnings: []string{"news unavailable"}, CreatedAt: base.Add(time.Minute),
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].TraceID)
	assert.Equal(t, []string{"news unavailable"}, got[0].Warnings)
	assert.Empty(t, got[0].Payload)
	assert.Equal(t, "t1", got[1].TraceID)
	assert.JSONEq(t, `{"symbol":"BTCUSDT"}`, got[1].Payload)
	assert.True(t, got[1].CreatedAt.Equal(base))

	counts, err := s.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"skipped": 1, "executed": 1}, counts)
}

func TestAppendRejectsDuplicateTrace(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, Entry{TraceID: "dup", Outcome: "skipped"}))
	assert.Error(t, s.Append(ctx, Entry{TraceID: "dup", Outcome: "skipped"}))
	assert.Error(t, s.Append(ctx, Entry{Outcome: "skipped"}))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
