package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"

	"ticketsale/internal/notification"
	"ticketsale/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS middleware
	},
}

const feedWriteTimeout = 10 * time.Second

// FeedHandler streams committed ticket events to websocket clients, so
// buyers see resale listings as they appear. Delivery order is not
// guaranteed; clients order by payload.header.sequence.
type FeedHandler struct {
	subscriber message.Subscriber
	logger     logger.Logger
}

func NewFeedHandler(sub message.Subscriber, log logger.Logger) *FeedHandler {
	return &FeedHandler{subscriber: sub, logger: log}
}

// WebSocketHandler handles GET /feed.
func (h *FeedHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.subscriber.Subscribe(ctx, notification.Topic)
	if err != nil {
		h.logger.Error("Feed subscription failed", map[string]interface{}{"error": err.Error()})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		return
	}

	h.logger.Info("WebSocket client connected", map[string]interface{}{"remote": r.RemoteAddr})

	// Clients only listen; the read loop exists to notice a close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			err := h.send(conn, notification.EnvelopeFrom(msg))
			msg.Ack()
			if err != nil {
				h.logger.Warn("Feed write failed", map[string]interface{}{"error": err.Error()})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *FeedHandler) send(conn *websocket.Conn, env notification.Envelope) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(env)
}
