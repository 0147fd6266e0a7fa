package websocket

import (
	"context"
	"time"
)

// Event types
const (
	TypeConnection        = "connection"
	TypeAnalysisStarted   = "analysis:started"
	TypeAnalysisCompleted = "analysis:completed"
	TypeAnalysisFailed    = "analysis:failed"
)

// Event is one message on the analysis stream.
type Event struct {
	Type       string    `json:"type"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data,omitempty"`
}

// Publisher accepts events for delivery. Publish never blocks on slow
// consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) {}
