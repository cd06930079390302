package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/models"
	"github.com/aigoflow/news-classifier/internal/store"
)

// SQLiteRepository implements Repository interface using SQLite
type SQLiteRepository struct {
	db          *store.DB
	requestRepo RequestRepositoryInterface
	eventRepo   EventRepositoryInterface
}

func NewSQLiteRepository(db *store.DB) Repository {
	return &SQLiteRepository{
		db:          db,
		requestRepo: &SQLiteRequestRepository{db: db},
		eventRepo:   &SQLiteEventRepository{db: db},
	}
}

func (r *SQLiteRepository) Request() RequestRepositoryInterface {
	return r.requestRepo
}

func (r *SQLiteRepository) Event() EventRepositoryInterface {
	return r.eventRepo
}

// SQLiteRequestRepository handles request logging
type SQLiteRequestRepository struct {
	db *store.DB
}

// Record mirrors an audit entry into the requests table.
func (r *SQLiteRequestRepository) Record(ctx context.Context, entry audit.Entry) error {
	reqJSON, err := json.Marshal(entry.Record.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	respJSON, err := json.Marshal(entry.Record.Response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return r.LogRequest(ctx, &models.RequestLog{
		Timestamp: entry.Arrival,
		ReqID:     entry.ReqID,
		Transport: entry.Transport,
		Request:   string(reqJSON),
		Response:  string(respJSON),
		Label:     entry.Record.Response.Label,
		LatencyMs: entry.Record.Latency,
	})
}

func (r *SQLiteRequestRepository) LogRequest(ctx context.Context, req *models.RequestLog) error {
	return r.db.Req(
		req.Timestamp,
		req.ReqID,
		req.Transport,
		req.Request,
		req.Response,
		req.Label,
		req.LatencyMs,
	)
}

func (r *SQLiteRequestRepository) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,ts,req_id,transport,request_json,response_json,label,latency_ms FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.RequestLog{}
	for rows.Next() {
		var log models.RequestLog
		var tsFloat float64

		if err := rows.Scan(
			&log.ID, &tsFloat, &log.ReqID, &log.Transport,
			&log.Request, &log.Response, &log.Label, &log.LatencyMs,
		); err != nil {
			return nil, err
		}
		log.Timestamp = time.Unix(0, int64(tsFloat*1e9))
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// SQLiteEventRepository handles event logging
type SQLiteEventRepository struct {
	db *store.DB
}

func (r *SQLiteEventRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	return r.db.Event(level, code, msg, meta)
}
