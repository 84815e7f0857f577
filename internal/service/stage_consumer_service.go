package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	pkgEvents "law-mate-be/pkg/events"
	pktNats "law-mate-be/pkg/nats"
	"law-mate-be/pkg/rag/executor"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IStageConsumerService interface {
	Consume(ctx context.Context) error
}

// stageConsumerService drains pipeline stage events off the in-process bus
// and forwards them to NATS. Keeping the forwarding out of the request path
// means a slow or absent NATS never adds query latency.
type stageConsumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *pktNats.Publisher
}

func NewStageConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *pktNats.Publisher,
) IStageConsumerService {
	if topicName == "" {
		topicName = executor.StageTopic
	}
	return &stageConsumerService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
	}
}

func (cs *stageConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *stageConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event executor.StageEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Printf("[ERROR] Failed to unmarshal stage event: %v", err)
		msg.Ack() // malformed, retrying cannot help
		return
	}

	if cs.natsPub != nil {
		evt := pkgEvents.BaseEvent{
			Type: "PIPELINE_STAGE",
			Data: map[string]interface{}{
				"session_id": event.SessionId,
				"stage":      string(event.Stage),
				"outcome":    event.Outcome,
				"provider":   event.Provider,
				"latency_ms": event.LatencyMs,
				"error":      event.Error,
			},
			OccurredAt: time.Now(),
		}
		if err := cs.natsPub.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to forward stage event to NATS: %v", err)
		}
	}

	msg.Ack()
}
