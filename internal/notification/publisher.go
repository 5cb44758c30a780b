package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketsale/internal/domain"
	"ticketsale/pkg/logger"
)

// Topic carries every committed ticket sale event.
const Topic = "ticketsale.events"

const (
	metadataEventName     = "event_name"
	metadataCorrelationID = "correlation_id"
)

// Publisher announces committed events. It is called after the transaction
// has committed, so a failure never rolls anything back.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// EventPublisher encodes events as JSON watermill messages on Topic.
type EventPublisher struct {
	pub message.Publisher
}

func NewEventPublisher(pub message.Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

func (p *EventPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", ev.EventName(), err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(metadataEventName, ev.EventName())
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			msg.Metadata.Set(metadataCorrelationID, id)
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.pub.Publish(Topic, msgs...)
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...domain.Event) error { return nil }

// Envelope is the wire form of an event pushed to feed clients.
type Envelope struct {
	Name          string          `json:"name"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EnvelopeFrom reads an event message produced by EventPublisher.
func EnvelopeFrom(msg *message.Message) Envelope {
	return Envelope{
		Name:          msg.Metadata.Get(metadataEventName),
		CorrelationID: msg.Metadata.Get(metadataCorrelationID),
		Payload:       json.RawMessage(msg.Payload),
	}
}
