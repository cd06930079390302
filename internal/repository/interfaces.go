package repository

import (
	"context"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/models"
)

// Repository aggregates all repository interfaces
type Repository interface {
	Request() RequestRepositoryInterface
	Event() EventRepositoryInterface
}

// RequestRepositoryInterface defines request logging operations.
// It doubles as an audit mirror for the timing wrapper.
type RequestRepositoryInterface interface {
	audit.Recorder
	LogRequest(ctx context.Context, req *models.RequestLog) error
	GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error)
}

// EventRepositoryInterface defines event logging operations
type EventRepositoryInterface interface {
	LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error
}
