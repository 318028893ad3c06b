package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kirinyoku/cinebook/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024

	subscribeTimeout = 5 * time.Second
)

// Client is one websocket connection. send is owned by the hub: only the
// Run goroutine writes to or closes it. topics is likewise only touched by
// the hub.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  int64
	topics  map[string]struct{}
	limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.hub.sendUnregister(c)
		_ = c.conn.Close()
		c.hub.conns.Add(-1)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws read", slog.String("client_id", c.id), slog.Any("err", err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.reply(EventError, ErrorPayload{Code: "RATE_LIMITED", Message: "too many messages"})
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply(EventError, ErrorPayload{Code: string(domain.CodeInvalid), Message: "invalid message format"})
			continue
		}

		c.handle(msg)
	}
}

func (c *Client) handle(msg ClientMessage) {
	switch msg.Type {
	case MsgSubscribe, MsgUnsubscribe:
	default:
		c.reply(EventError, ErrorPayload{
			Code:    string(domain.CodeInvalid),
			Message: "unknown message type: " + msg.Type,
		})
		return
	}

	if msg.ShowtimeID <= 0 {
		c.reply(EventError, ErrorPayload{Code: string(domain.CodeInvalid), Message: "showtimeId is required"})
		return
	}

	on := msg.Type == MsgSubscribe
	if on && c.hub.cfg.CanSubscribe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		err := c.hub.cfg.CanSubscribe(ctx, msg.ShowtimeID)
		cancel()
		if err != nil {
			c.reply(EventError, ErrorPayload{
				Code:    string(domain.CodeOf(err)),
				Message: domain.MessageOf(err),
			})
			return
		}
	}

	if !c.hub.sendSubscription(subscription{client: c, topic: Topic(msg.ShowtimeID), on: on}) {
		return
	}

	event := EventSubscribed
	if !on {
		event = EventUnsubscribed
	}
	c.reply(event, Subscription{ShowtimeID: msg.ShowtimeID})
}

func (c *Client) reply(event string, payload any) {
	msg, err := c.hub.encodePayload(event, payload)
	if err != nil {
		return
	}
	c.hub.deliver(delivery{client: c, msg: msg})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
