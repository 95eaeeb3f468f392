package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogsBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reqCtx := NewRequestContext(logger, "/api/v1/study/due")
	_, err := uuid.Parse(reqCtx.RequestID)
	require.NoError(t, err)

	reqCtx.UserID = 7
	reqCtx.Error("request failed", errors.New("boom"), slog.Int(LogFieldStatus, 500))

	out := buf.String()
	assert.Contains(t, out, "request_id="+reqCtx.RequestID)
	assert.Contains(t, out, "route=/api/v1/study/due")
	assert.Contains(t, out, "user_id=7")
	assert.Contains(t, out, "status=500")
	assert.Contains(t, out, "error=boom")
}

func TestRequestContextRoundTrip(t *testing.T) {
	reqCtx := NewRequestContextWithID(nil, "abc", "/healthz")
	ctx := WithRequestContext(context.Background(), reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", got.RequestID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(10)
	for i := 1; i <= 20; i++ {
		m.Record("/a", time.Duration(i)*time.Millisecond, i%10 == 0)
	}
	m.Record("/b", 5*time.Millisecond, false)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(21), snapshot.RequestTotal)
	assert.Equal(t, int64(2), snapshot.RequestFailed)
	assert.Equal(t, int64(20), snapshot.Routes["/a"].RequestCount)
	assert.Equal(t, int64(2), snapshot.Routes["/a"].ErrorCount)
	assert.Equal(t, int64(10), snapshot.Routes["/a"].AverageDurationMs)
	// Only the last ten durations are kept: 12..20 and 5.
	assert.Equal(t, int64(15), snapshot.P50LatencyMs)
	assert.Equal(t, int64(19), snapshot.P95LatencyMs)
	assert.InDelta(t, 90.47, snapshot.SuccessRate(), 0.01)

	m.Reset()
	assert.Zero(t, m.Snapshot().RequestTotal)
}
