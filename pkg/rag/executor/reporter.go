package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// StageTopic is the in-process topic stage events are published on. A
// consumer forwards them to the external bus; the pipeline itself never
// blocks on delivery.
const StageTopic = "pipeline.stages"

// StageEvent describes one completed pipeline stage.
type StageEvent struct {
	SessionId string        `json:"session_id"`
	Stage     Stage         `json:"stage"`
	Outcome   string        `json:"outcome"`
	Provider  string        `json:"provider,omitempty"`
	LatencyMs int64         `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
	Duration  time.Duration `json:"-"`
}

// StageReporter receives stage transitions. Implementations must be cheap;
// the pipeline calls them inline.
type StageReporter interface {
	Report(ctx context.Context, event StageEvent)
}

// NopReporter drops events.
type NopReporter struct{}

func (NopReporter) Report(context.Context, StageEvent) {}

// WatermillReporter publishes stage events onto the in-process pub/sub.
type WatermillReporter struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillReporter publishes onto topic; an empty topic falls back to
// StageTopic.
func NewWatermillReporter(publisher message.Publisher, topic string) *WatermillReporter {
	if topic == "" {
		topic = StageTopic
	}
	return &WatermillReporter{publisher: publisher, topic: topic}
}

func (r *WatermillReporter) Report(ctx context.Context, event StageEvent) {
	event.At = time.Now()
	event.LatencyMs = event.Duration.Milliseconds()

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	// Best effort: observability must never fail a query.
	_ = r.publisher.Publish(r.topic, msg)
}
