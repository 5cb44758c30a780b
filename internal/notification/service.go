// Package notification publishes committed ticket sale events and delivers
// holder notifications derived from them.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"ticketsale/internal/domain"
	"ticketsale/pkg/logger"
)

// Notification represents a message to be sent.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string // event name, e.g. "ResaleSettled"
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Sender delivers a rendered notification.
type Sender interface {
	SendRaw(ctx context.Context, n *Notification) error
}

// LogSender simulates delivery by logging.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) SendRaw(ctx context.Context, n *Notification) error {
	s.logger.Info("Notification Sent", map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"type":            n.Type,
		"subject":         n.Subject,
		"correlation_id":  logger.CorrelationIDFromContext(ctx),
	})
	return nil
}

// Dispatcher turns event messages into holder notifications.
type Dispatcher struct {
	sender Sender
	logger logger.Logger
}

func NewDispatcher(sender Sender, log logger.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: log}
}

// Run consumes Topic until ctx is done or the subscription closes.
func (d *Dispatcher) Run(ctx context.Context, sub message.Subscriber) error {
	msgs, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			d.Handle(msg)
			msg.Ack()
		}
	}
}

// Handle renders and sends the notifications for one message. Undecodable
// payloads are logged and skipped.
func (d *Dispatcher) Handle(msg *message.Message) {
	env := EnvelopeFrom(msg)
	ctx := logger.ContextWithCorrelationID(context.Background(), env.CorrelationID)

	notes, err := Render(env)
	if err != nil {
		d.logger.Error("Failed to render notification", map[string]interface{}{
			"error":      err.Error(),
			"event_name": env.Name,
			"message_id": msg.UUID,
		})
		return
	}
	for _, n := range notes {
		if err := d.sender.SendRaw(ctx, n); err != nil {
			d.logger.Error("Failed to send notification", map[string]interface{}{
				"error":   err.Error(),
				"user_id": n.UserID,
				"type":    n.Type,
			})
		}
	}
}

// Render builds the notifications owed for an event envelope.
func Render(env Envelope) ([]*Notification, error) {
	note := func(user uuid.UUID, subject, body string) *Notification {
		return &Notification{
			ID:        uuid.New(),
			UserID:    user,
			Type:      env.Name,
			Subject:   subject,
			Body:      body,
			CreatedAt: time.Now(),
		}
	}

	switch env.Name {
	case domain.TicketPurchased{}.EventName():
		var ev domain.TicketPurchased
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return []*Notification{
			note(ev.Buyer, "Ticket Purchased", fmt.Sprintf("You bought ticket %d for %s.", ev.TicketID, ev.Amount)),
		}, nil

	case domain.SwapOffered{}.EventName():
		var ev domain.SwapOffered
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return []*Notification{
			note(ev.Counterparty, "Swap Offer Received",
				fmt.Sprintf("Ticket %d is offered in exchange for your ticket %d.", ev.ProposerTicket, ev.TargetTicket)),
		}, nil

	case domain.SwapSettled{}.EventName():
		var ev domain.SwapSettled
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		s := ev.Settlement
		return []*Notification{
			note(s.Proposer, "Swap Completed", fmt.Sprintf("You now hold ticket %d.", s.ProposerReceived)),
			note(s.Counterparty, "Swap Completed", fmt.Sprintf("You now hold ticket %d.", s.CounterpartyGained)),
		}, nil

	case domain.ResaleSettled{}.EventName():
		var ev domain.ResaleSettled
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		s := ev.Settlement
		return []*Notification{
			note(s.Seller, "Ticket Sold", fmt.Sprintf("Ticket %d sold for %s. You received %s.", s.TicketID, s.Price, s.SellerAmount)),
			note(s.Buyer, "Ticket Purchased", fmt.Sprintf("You bought ticket %d for %s.", s.TicketID, s.Price)),
		}, nil

	case domain.TicketReturned{}.EventName():
		var ev domain.TicketReturned
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		r := ev.Receipt
		return []*Notification{
			note(r.Holder, "Ticket Returned", fmt.Sprintf("Ticket %d returned. Refund amount: %s.", r.TicketID, r.Refund)),
		}, nil

	case domain.ResaleListed{}.EventName(), domain.ResaleCancelled{}.EventName(), domain.SwapWithdrawn{}.EventName():
		return nil, nil
	}
	return nil, fmt.Errorf("unknown event %q", env.Name)
}
