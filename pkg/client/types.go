package client

import (
	"encoding/json"
	"time"
)

// Article is the payload classified by the service.
type Article struct {
	Source      string `json:"source"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PredictEnvelope is published on the prediction subject.
type PredictEnvelope struct {
	ReqID   string          `json:"req_id"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Request json.RawMessage `json:"request"`
}

// PredictReply is the service answer. Status mirrors HTTP: 200, 422 or 500.
type PredictReply struct {
	ReqID  string             `json:"req_id"`
	Status int                `json:"status"`
	Scores map[string]float64 `json:"scores,omitempty"`
	Label  string             `json:"label,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// HealthStatus represents model health information
type HealthStatus struct {
	ModelName string    `json:"model_name"`
	Status    string    `json:"status"`
	Labels    []string  `json:"labels"`
	Endpoint  string    `json:"endpoint"`
	NATSTopic string    `json:"nats_topic"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Stats     struct {
		Active   int64 `json:"active"`
		Served   int64 `json:"served"`
		Rejected int64 `json:"rejected"`
		Failed   int64 `json:"failed"`
	} `json:"stats"`
}
