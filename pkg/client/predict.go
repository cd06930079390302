package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// PredictClient provides a client interface for the classifier service
type PredictClient interface {
	Predict(ctx context.Context, model string, article Article) (*PredictReply, error)
	CheckHealth(ctx context.Context, model string) (*HealthStatus, error)
	Close() error
}

// NATSPredictClient implements PredictClient over NATS
type NATSPredictClient struct {
	conn     *nats.Conn
	clientID string
	timeout  time.Duration
}

// NewNATSClient creates a new NATS-based prediction client
func NewNATSClient(natsURL, clientID string) (*NATSPredictClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if clientID == "" {
		clientID = "predict-client"
	}
	return &NATSPredictClient{
		conn:     conn,
		clientID: clientID,
		timeout:  30 * time.Second,
	}, nil
}

// RequestSubject is the work-queue subject for model.
func RequestSubject(model string) string {
	return fmt.Sprintf("predict.request.%s", model)
}

// NewEnvelope wraps article with a fresh ULID request id and its reply subject.
func NewEnvelope(clientID string, article Article) (PredictEnvelope, error) {
	raw, err := json.Marshal(article)
	if err != nil {
		return PredictEnvelope{}, fmt.Errorf("failed to marshal article: %w", err)
	}
	reqID := ulid.Make().String()
	return PredictEnvelope{
		ReqID:   reqID,
		ReplyTo: fmt.Sprintf("predict.response.%s.%s", clientID, reqID),
		Request: raw,
	}, nil
}

// Predict publishes article and waits for the reply. A non-200 reply is
// returned together with an error describing it.
func (c *NATSPredictClient) Predict(ctx context.Context, model string, article Article) (*PredictReply, error) {
	env, err := NewEnvelope(c.clientID, article)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Subscribe to the reply subject before publishing.
	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(env.ReplyTo, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	topic := RequestSubject(model)
	if err := c.conn.Publish(topic, data); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}
	slog.Debug("Published prediction request", "topic", topic, "req_id", env.ReqID)

	select {
	case msg := <-replyChan:
		var reply PredictReply
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			return nil, fmt.Errorf("failed to parse reply: %w", err)
		}
		if reply.Status != http.StatusOK {
			return &reply, fmt.Errorf("prediction failed with status %d: %s", reply.Status, reply.Error)
		}
		return &reply, nil
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckHealth checks if a model is available and healthy
func (c *NATSPredictClient) CheckHealth(ctx context.Context, model string) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, fmt.Sprintf("models.%s.health", model), nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	var health HealthStatus
	if err := json.Unmarshal(msg.Data, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

// Close closes the NATS connection
func (c *NATSPredictClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// SetTimeout configures request timeout
func (c *NATSPredictClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}
