// Package app owns the process-wide state of the service: the loaded model,
// the audit log sink and the optional sqlite audit mirror. It is built once
// at startup and closed once at shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/classifier"
	"github.com/aigoflow/news-classifier/internal/config"
	"github.com/aigoflow/news-classifier/internal/models"
	"github.com/aigoflow/news-classifier/internal/repository"
	"github.com/aigoflow/news-classifier/internal/services"
	"github.com/aigoflow/news-classifier/internal/store"
)

type App struct {
	Model   classifier.Model
	Sink    *audit.FileSink
	DB      *store.DB
	Repo    repository.Repository // nil when DBPath is empty
	Service *services.PredictionService
	Stats   *services.Stats

	// Predict is the audited prediction operation shared by every transport.
	Predict audit.PredictFunc

	closeOnce sync.Once
	closeErr  error
}

// New loads the model and opens the audit sink. Any error is a *models.LoadError
// and the process must not serve. On failure everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Stats: services.NewStats()}

	if cfg.DBPath != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, &models.LoadError{Path: cfg.DBPath, Err: err}
		}
		a.DB = db
		a.Repo = repository.NewSQLiteRepository(db)
	}
	a.Event(ctx, "info", "model.loading", "Model loading started", map[string]interface{}{
		"model_path": cfg.ModelPath,
	})

	nc := classifier.NewNewsCategoryClassifier()
	if err := nc.Load(cfg.ModelPath); err != nil {
		a.Event(ctx, "error", "model.failed", "Model loading failed", map[string]interface{}{
			"model_path": cfg.ModelPath,
			"error":      err.Error(),
		})
		a.Close()
		return nil, err
	}
	a.Model = nc
	slog.Info("Model loaded", "path", cfg.ModelPath, "labels", nc.Labels())
	a.Event(ctx, "info", "model.loaded", "Model loaded successfully", map[string]interface{}{
		"model_path": cfg.ModelPath,
		"labels":     nc.Labels(),
	})

	sink, err := audit.OpenFileSink(cfg.LogsOutputPath)
	if err != nil {
		a.Close()
		return nil, &models.LoadError{Path: cfg.LogsOutputPath, Err: err}
	}
	a.Sink = sink
	slog.Info("Audit log opened", "path", cfg.LogsOutputPath)

	opts := []audit.Option{}
	if a.Repo != nil {
		opts = append(opts, audit.WithMirror(a.Repo.Request()))
	}
	a.Service = services.NewPredictionService(a.Model)
	a.Predict = audit.NewLogger(a.Sink, opts...).Wrap(a.Service.Predict)

	return a, nil
}

// Requests returns the sqlite request log, or nil when the mirror is disabled.
func (a *App) Requests() repository.RequestRepositoryInterface {
	if a.Repo == nil {
		return nil
	}
	return a.Repo.Request()
}

// Labels lists the classes of the loaded model.
func (a *App) Labels() []string {
	if a.Model == nil {
		return nil
	}
	return a.Model.Labels()
}

// Close flushes and closes the audit sink, then the database. It must only
// run after request handling has stopped. Repeated calls return the first result.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.closeOnce.Do(func() {
		var errs []error
		if err := a.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit sink: %w", err))
		}
		a.Event(context.Background(), "info", "shutdown", "Audit log closed", nil)
		if a.DB != nil {
			if err := a.DB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// Event records an operational event in the sqlite events table when enabled.
func (a *App) Event(ctx context.Context, level, code, msg string, meta map[string]interface{}) {
	if a.Repo == nil {
		return
	}
	if err := a.Repo.Event().LogEvent(ctx, level, code, msg, meta); err != nil {
		slog.Warn("Failed to record event", "code", code, "error", err)
	}
}
