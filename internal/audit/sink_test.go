package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aigoflow/news-classifier/internal/models"
)

func testEntry(i int) Entry {
	return Entry{
		ReqID: fmt.Sprintf("req-%d", i),
		Record: models.AuditRecord{
			Timestamp: "2026:10:19 08:15:00",
			Request:   models.PredictRequest{Source: "s", URL: "u", Title: fmt.Sprintf("title %d", i), Description: strings.Repeat("d", 512)},
			Response:  models.PredictResponse{Scores: map[string]float64{"Sports": 0.9, "Business": 0.1}, Label: "Sports"},
			Latency:   int64(i),
		},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestFileSinkAppendsToExistingFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "logs.out")
	req.NoError(os.WriteFile(path, []byte("previous line\n"), 0o644))

	sink, err := OpenFileSink(path)
	req.NoError(err)
	req.Equal(path, sink.Path())
	req.NoError(sink.Record(context.Background(), testEntry(1)))
	req.NoError(sink.Close())

	lines := readLines(t, path)
	req.Len(lines, 2)
	req.Equal("previous line", lines[0])

	var rec models.AuditRecord
	req.NoError(json.Unmarshal([]byte(lines[1]), &rec))
	req.Equal(testEntry(1).Record, rec)
}

func TestFileSinkRecordIsVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.out")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Record(context.Background(), testEntry(1)))
	require.Len(t, readLines(t, path), 1)
}

func TestFileSinkConcurrentWritesDoNotInterleave(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "logs.out")
	sink, err := OpenFileSink(path)
	req.NoError(err)

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := sink.Record(context.Background(), testEntry(i)); err != nil {
				t.Errorf("record %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	req.NoError(sink.Close())

	lines := readLines(t, path)
	req.Len(lines, writers)
	seen := map[int64]bool{}
	for _, line := range lines {
		var rec models.AuditRecord
		req.NoError(json.Unmarshal([]byte(line), &rec), line)
		seen[rec.Latency] = true
	}
	req.Len(seen, writers)
}

func TestFileSinkCloseIsIdempotent(t *testing.T) {
	req := require.New(t)
	sink, err := OpenFileSink(filepath.Join(t.TempDir(), "logs.out"))
	req.NoError(err)
	req.NoError(sink.Close())
	req.NoError(sink.Close())

	err = sink.Record(context.Background(), testEntry(1))
	req.ErrorIs(err, ErrSinkClosed)

	var nilSink *FileSink
	req.NoError(nilSink.Close())
}

func TestOpenFileSinkFailsForMissingDirectory(t *testing.T) {
	_, err := OpenFileSink(filepath.Join(t.TempDir(), "missing", "logs.out"))
	require.Error(t, err)
}
