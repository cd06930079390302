package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/news-classifier/internal/config"
)

type HealthService struct {
	nats     *nats.Conn
	config   *config.Config
	labels   []string
	stats    *Stats
	started  time.Time
	interval time.Duration
}

type HealthStatus struct {
	ModelName string        `json:"model_name"`
	Status    string        `json:"status"`
	Labels    []string      `json:"labels"`
	Endpoint  string        `json:"endpoint"`
	NATSTopic string        `json:"nats_topic"`
	Uptime    string        `json:"uptime"`
	Stats     StatsSnapshot `json:"stats"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewHealthService(natsConn *nats.Conn, cfg *config.Config, labels []string, stats *Stats) *HealthService {
	return &HealthService{
		nats:     natsConn,
		config:   cfg,
		labels:   labels,
		stats:    stats,
		started:  time.Now(),
		interval: 30 * time.Second,
	}
}

// HealthTopic is the request-reply subject answering health checks for a model.
func HealthTopic(modelName string) string {
	return fmt.Sprintf("models.%s.health", modelName)
}

func (h *HealthService) Start(ctx context.Context) error {
	healthTopic := HealthTopic(h.config.ModelName)

	sub, err := h.nats.Subscribe(healthTopic, func(msg *nats.Msg) {
		statusData, err := json.Marshal(h.Status())
		if err != nil {
			slog.Error("Failed to marshal health status", "error", err)
			return
		}
		if err := msg.Respond(statusData); err != nil {
			slog.Error("Failed to respond to health check", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to health topic: %w", err)
	}

	slog.Info("Health service started", "topic", healthTopic)

	go func() {
		h.publishHeartbeats(ctx)
		_ = sub.Unsubscribe()
	}()

	return nil
}

func (h *HealthService) publishHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	heartbeatTopic := fmt.Sprintf("models.%s.heartbeat", h.config.ModelName)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statusData, err := json.Marshal(h.Status())
			if err != nil {
				continue
			}
			if err := h.nats.Publish(heartbeatTopic, statusData); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

// Status reports the current health of this instance.
func (h *HealthService) Status() HealthStatus {
	return HealthStatus{
		ModelName: h.config.ModelName,
		Status:    "online",
		Labels:    h.labels,
		Endpoint:  fmt.Sprintf("http://localhost%s", h.config.HTTPAddr),
		NATSTopic: h.config.Subject,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Stats:     h.stats.Snapshot(),
		Timestamp: time.Now(),
	}
}
