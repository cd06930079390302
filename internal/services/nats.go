package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/config"
	"github.com/aigoflow/news-classifier/internal/models"
)

// PredictEnvelope is the message published on the prediction subject.
type PredictEnvelope struct {
	ReqID   string          `json:"req_id"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Request json.RawMessage `json:"request"`
}

// PredictReply is published on the envelope's reply_to subject.
// Status follows HTTP semantics: 200, 422 or 500.
type PredictReply struct {
	ReqID  string             `json:"req_id"`
	Status int                `json:"status"`
	Scores map[string]float64 `json:"scores,omitempty"`
	Label  string             `json:"label,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func generateWorkerID() string {
	return "worker-" + ulid.Make().String()
}

type NATSService struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	predict audit.PredictFunc
	stats   *Stats
	cfg     *config.Config
	wg      sync.WaitGroup
}

func NewNATSService(cfg *config.Config, predict audit.PredictFunc, stats *Stats) (*NATSService, error) {
	conn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSService{
		conn:    conn,
		js:      js,
		predict: predict,
		stats:   stats,
		cfg:     cfg,
	}, nil
}

// Start consumes prediction requests until ctx is cancelled, then waits for
// in-flight messages to finish before returning.
func (s *NATSService) Start(ctx context.Context) error {
	if err := s.ensureStream(); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	consumer, err := s.createConsumer()
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	slog.Info("NATS service starting",
		"stream", s.cfg.Stream,
		"subject", s.cfg.Subject,
		"consumer", s.cfg.Durable,
		"concurrency", s.cfg.Concurrency)

	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.worker(ctx, consumer, generateWorkerID())
	}

	<-ctx.Done()
	slog.Info("NATS service draining workers")
	s.wg.Wait()
	return nil
}

func (s *NATSService) ensureStream() error {
	streamInfo, err := s.js.StreamInfo(s.cfg.Stream)
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:      s.cfg.Stream,
			Subjects:  []string{s.cfg.Subject},
			MaxMsgs:   int64(s.cfg.MaxMsgs),
			MaxAge:    s.cfg.MaxAge,
			Storage:   nats.FileStorage,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		slog.Info("Created NATS stream", "name", s.cfg.Stream)
		return nil
	}

	for _, subject := range streamInfo.Config.Subjects {
		if subject == s.cfg.Subject {
			slog.Info("NATS stream already exists", "name", s.cfg.Stream, "messages", streamInfo.State.Msgs)
			return nil
		}
	}

	newConfig := streamInfo.Config
	newConfig.Subjects = append(newConfig.Subjects, s.cfg.Subject)
	if _, err := s.js.UpdateStream(&newConfig); err != nil {
		return fmt.Errorf("failed to update stream with new subject: %w", err)
	}
	slog.Info("Updated NATS stream with new subject", "name", s.cfg.Stream, "subject", s.cfg.Subject)
	return nil
}

func (s *NATSService) createConsumer() (*nats.Subscription, error) {
	sub, err := s.js.PullSubscribe(s.cfg.Subject, s.cfg.Durable, nats.ManualAck())
	if err != nil {
		return nil, fmt.Errorf("failed to create pull consumer: %w", err)
	}
	slog.Info("Created NATS consumer", "durable", s.cfg.Durable)
	return sub, nil
}

func (s *NATSService) worker(ctx context.Context, consumer *nats.Subscription, workerID string) {
	defer s.wg.Done()
	slog.Info("NATS worker starting", "worker_id", workerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("NATS worker shutting down", "worker_id", workerID)
			return
		default:
			msgs, err := consumer.Fetch(1, nats.MaxWait(time.Second))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				slog.Error("Failed to fetch messages", "worker_id", workerID, "error", err)
				time.Sleep(time.Second)
				continue
			}
			for _, msg := range msgs {
				s.processMessage(msg, workerID)
			}
		}
	}
}

func (s *NATSService) processMessage(msg *nats.Msg, workerID string) {
	start := time.Now()
	// Inference is not interrupted by shutdown; the message finishes first.
	reply, replyTo := HandleEnvelope(context.Background(), msg.Data, s.predict, s.stats)

	if replyTo != "" {
		data, err := json.Marshal(reply)
		if err != nil {
			slog.Error("Failed to marshal reply", "worker_id", workerID, "req_id", reply.ReqID, "error", err)
		} else if err := s.conn.Publish(replyTo, data); err != nil {
			slog.Error("Failed to publish reply",
				"worker_id", workerID,
				"req_id", reply.ReqID,
				"reply_subject", replyTo,
				"error", err)
		}
	}

	// Invalid payloads would fail identically on redelivery.
	var ackErr error
	if reply.Status == http.StatusUnprocessableEntity {
		ackErr = msg.Term()
	} else {
		ackErr = msg.Ack()
	}
	if ackErr != nil {
		slog.Error("Failed to acknowledge message", "worker_id", workerID, "req_id", reply.ReqID, "error", ackErr)
	}

	slog.Info("NATS prediction handled",
		"worker_id", workerID,
		"req_id", reply.ReqID,
		"status", reply.Status,
		"label", reply.Label,
		"duration_ms", time.Since(start).Milliseconds())
}

// HandleEnvelope validates and runs one prediction envelope, returning the
// reply and the subject it should be sent to.
func HandleEnvelope(ctx context.Context, data []byte, predict audit.PredictFunc, stats *Stats) (PredictReply, string) {
	var env PredictEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		stats.Reject()
		return PredictReply{Status: http.StatusUnprocessableEntity, Error: "invalid envelope: " + err.Error()}, ""
	}
	if env.ReqID == "" {
		env.ReqID = ulid.Make().String()
	}

	req, err := models.DecodePredictPayload(env.Request)
	if err != nil {
		stats.Reject()
		return PredictReply{ReqID: env.ReqID, Status: http.StatusUnprocessableEntity, Error: err.Error()}, env.ReplyTo
	}

	done := stats.Begin()
	resp, err := predict(audit.WithRequestMeta(ctx, env.ReqID, "nats"), req)
	done(err)
	if err != nil {
		slog.Error("Prediction failed", "req_id", env.ReqID, "transport", "nats", "error", err)
		return PredictReply{ReqID: env.ReqID, Status: http.StatusInternalServerError, Error: err.Error()}, env.ReplyTo
	}

	return PredictReply{
		ReqID:  env.ReqID,
		Status: http.StatusOK,
		Scores: resp.Scores,
		Label:  resp.Label,
	}, env.ReplyTo
}

func (s *NATSService) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func (s *NATSService) GetConnection() *nats.Conn {
	return s.conn
}
