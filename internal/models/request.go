package models

import "time"

// PredictRequest describes the news article to classify.
type PredictRequest struct {
	Source      string `json:"source"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Fields returns the mapping form consumed by the classifier.
func (r PredictRequest) Fields() map[string]string {
	return map[string]string{
		"source":      r.Source,
		"url":         r.URL,
		"title":       r.Title,
		"description": r.Description,
	}
}

// PredictResponse carries per-class probabilities and the chosen label.
type PredictResponse struct {
	Scores map[string]float64 `json:"scores"`
	Label  string             `json:"label"`
}

// AuditTimeLayout renders timestamps as YYYY:MM:DD HH:MM:SS.
const AuditTimeLayout = "2006:01:02 15:04:05"

// AuditRecord is one line of the audit log.
type AuditRecord struct {
	Timestamp string          `json:"timestamp"`
	Request   PredictRequest  `json:"request"`
	Response  PredictResponse `json:"response"`
	Latency   int64           `json:"latency"`
}

// RequestLog is an audit record as stored in the sqlite mirror.
type RequestLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"ts"`
	ReqID     string    `json:"req_id"`
	Transport string    `json:"transport"`
	Request   string    `json:"request"`
	Response  string    `json:"response"`
	Label     string    `json:"label"`
	LatencyMs int64     `json:"latency_ms"`
}
