package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/news-classifier/internal/models"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memRecorder) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

// stepClock returns start on the first call and start+step afterwards.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(step)
	}
}

var (
	sampleReq  = models.PredictRequest{Source: "Yahoo Entertainment", URL: "http://example.com", Title: "t", Description: "d"}
	sampleResp = &models.PredictResponse{Scores: map[string]float64{"Entertainment": 0.8, "Sports": 0.2}, Label: "Entertainment"}
	quietLog   = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func okOp(context.Context, models.PredictRequest) (*models.PredictResponse, error) {
	return sampleResp, nil
}

func TestWrapRecordsOneEntry(t *testing.T) {
	req := require.New(t)
	rec := &memRecorder{}
	start := time.Date(2026, 10, 19, 8, 15, 42, 900_000_000, time.Local)
	logger := NewLogger(rec, WithClock(stepClock(start, 12900*time.Microsecond)), WithLogger(quietLog))

	ctx := WithRequestMeta(context.Background(), "01HREQ", "http")
	resp, err := logger.Wrap(okOp)(ctx, sampleReq)
	req.NoError(err)
	req.Same(sampleResp, resp)

	req.Len(rec.entries, 1)
	e := rec.entries[0]
	req.Equal("01HREQ", e.ReqID)
	req.Equal("http", e.Transport)
	req.Equal("2026:10:19 08:15:42", e.Record.Timestamp)
	req.Equal(int64(12), e.Record.Latency)
	req.Equal(sampleReq, e.Record.Request)
	req.Equal(*sampleResp, e.Record.Response)
}

func TestWrapDoesNotRecordFailures(t *testing.T) {
	req := require.New(t)
	rec := &memRecorder{}
	boom := &models.InferenceError{Err: errors.New("boom")}

	_, err := NewLogger(rec, WithLogger(quietLog)).Wrap(func(context.Context, models.PredictRequest) (*models.PredictResponse, error) {
		return nil, boom
	})(context.Background(), sampleReq)

	req.Same(boom, err)
	req.Empty(rec.entries)
}

func TestWrapSinkFailureFailsRequest(t *testing.T) {
	req := require.New(t)
	rec := &memRecorder{err: errors.New("disk full")}
	_, err := NewLogger(rec, WithLogger(quietLog)).Wrap(okOp)(context.Background(), sampleReq)

	var lwErr *models.LogWriteError
	req.ErrorAs(err, &lwErr)
}

func TestWrapMirrorFailureIsNotFatal(t *testing.T) {
	req := require.New(t)
	primary := &memRecorder{}
	mirror := &memRecorder{err: errors.New("db locked")}
	healthy := &memRecorder{}

	logger := NewLogger(primary, WithMirror(mirror), WithMirror(healthy), WithLogger(quietLog))
	resp, err := logger.Wrap(okOp)(context.Background(), sampleReq)
	req.NoError(err)
	req.NotNil(resp)
	req.Len(primary.entries, 1)
	req.Len(healthy.entries, 1)
}

func TestWrapWritesToFileSink(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "logs.out")
	sink, err := OpenFileSink(path)
	req.NoError(err)

	wrapped := NewLogger(sink, WithLogger(quietLog)).Wrap(okOp)
	for i := 0; i < 3; i++ {
		_, err := wrapped(context.Background(), sampleReq)
		req.NoError(err)
	}
	req.NoError(sink.Close())

	lines := readLines(t, path)
	req.Len(lines, 3)
	var raw map[string]json.RawMessage
	req.NoError(json.Unmarshal([]byte(lines[0]), &raw))
	req.ElementsMatch([]string{"timestamp", "request", "response", "latency"}, lo.Keys(raw))

	var rec models.AuditRecord
	req.NoError(json.Unmarshal([]byte(lines[0]), &rec))
	req.Equal(sampleReq, rec.Request)
	req.Equal(*sampleResp, rec.Response)
	req.GreaterOrEqual(rec.Latency, int64(0))
	_, err = time.ParseInLocation(models.AuditTimeLayout, rec.Timestamp, time.Local)
	req.NoError(err)
}

func TestMilliseconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int64
	}{
		{12900 * time.Microsecond, 12},
		{999 * time.Microsecond, 0},
		{time.Second, 1000},
		{-time.Millisecond, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Milliseconds(tt.in), tt.in.String())
	}
}
