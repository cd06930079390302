package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aigoflow/news-classifier/internal/models"
)

// PredictFunc is a single-request prediction operation.
type PredictFunc func(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error)

// Entry is what a Recorder receives for each completed prediction.
type Entry struct {
	ReqID     string
	Transport string
	Arrival   time.Time
	Record    models.AuditRecord
}

type metaKey struct{}

type requestMeta struct {
	reqID     string
	transport string
}

// WithRequestMeta tags ctx with the request id and transport that end up in mirror rows.
func WithRequestMeta(ctx context.Context, reqID, transport string) context.Context {
	return context.WithValue(ctx, metaKey{}, requestMeta{reqID: reqID, transport: transport})
}

func metaFrom(ctx context.Context) requestMeta {
	m, _ := ctx.Value(metaKey{}).(requestMeta)
	return m
}

// Logger times wrapped operations and appends one audit record per success.
type Logger struct {
	sink    Recorder
	mirrors []Recorder
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Logger)

// WithMirror adds a best-effort secondary recorder. Its failures are logged, not returned.
func WithMirror(r Recorder) Option {
	return func(l *Logger) { l.mirrors = append(l.mirrors, r) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Logger) { l.log = log }
}

func NewLogger(sink Recorder, opts ...Option) *Logger {
	l := &Logger{sink: sink, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wrap returns op decorated with latency measurement and audit logging.
// Errors from op are returned untouched and leave no audit record. A failure
// to write the primary sink fails the call with *models.LogWriteError.
func (l *Logger) Wrap(op PredictFunc) PredictFunc {
	return func(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
		arrival := l.now()
		resp, err := op(ctx, req)
		if err != nil {
			return nil, err
		}
		elapsed := l.now().Sub(arrival)

		meta := metaFrom(ctx)
		entry := Entry{
			ReqID:     meta.reqID,
			Transport: meta.transport,
			Arrival:   arrival,
			Record: models.AuditRecord{
				Timestamp: arrival.Format(models.AuditTimeLayout),
				Request:   req,
				Response:  *resp,
				Latency:   Milliseconds(elapsed),
			},
		}

		if err := l.sink.Record(ctx, entry); err != nil {
			l.log.Error("Audit log write failed", "req_id", meta.reqID, "error", err)
			return nil, &models.LogWriteError{Err: err}
		}
		for _, m := range l.mirrors {
			if err := m.Record(ctx, entry); err != nil {
				l.log.Warn("Audit mirror write failed", "req_id", meta.reqID, "error", err)
			}
		}
		return resp, nil
	}
}

// Milliseconds truncates d to whole milliseconds, never below zero.
func Milliseconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
