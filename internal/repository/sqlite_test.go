package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/models"
	"github.com/aigoflow/news-classifier/internal/store"
)

func newRepo(t *testing.T) Repository {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "audit.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db)
}

func TestRecordAndGetRequestLogs(t *testing.T) {
	req := require.New(t)
	repo := newRepo(t)
	ctx := context.Background()
	arrival := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		entry := audit.Entry{
			ReqID:     fmt.Sprintf("req-%d", i),
			Transport: "http",
			Arrival:   arrival.Add(time.Duration(i) * time.Second),
			Record: models.AuditRecord{
				Timestamp: "2026:10:19 08:00:00",
				Request:   models.PredictRequest{Source: "s", URL: "u", Title: "t", Description: "d"},
				Response:  models.PredictResponse{Scores: map[string]float64{"Sports": 1}, Label: "Sports"},
				Latency:   int64(i),
			},
		}
		req.NoError(repo.Request().Record(ctx, entry))
	}

	logs, err := repo.Request().GetRequestLogs(ctx, 2)
	req.NoError(err)
	req.Len(logs, 2)
	req.Equal("req-2", logs[0].ReqID)
	req.Equal("req-1", logs[1].ReqID)
	req.Equal("Sports", logs[0].Label)
	req.Equal(int64(2), logs[0].LatencyMs)
	req.WithinDuration(arrival.Add(2*time.Second), logs[0].Timestamp, time.Millisecond)

	var got models.PredictRequest
	req.NoError(json.Unmarshal([]byte(logs[0].Request), &got))
	req.Equal("t", got.Title)
}

func TestGetRequestLogsEmpty(t *testing.T) {
	logs, err := newRepo(t).Request().GetRequestLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestLogEvent(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Event().LogEvent(context.Background(), "info", "model.loaded", "Model loaded", map[string]interface{}{"labels": 5}))
}
