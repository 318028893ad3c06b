// Package realtime pushes seat and booking events to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"golang.org/x/time/rate"
)

type HubConfig struct {
	// MessagesPerSecond and Burst bound the frames a client may send.
	MessagesPerSecond float64
	Burst             int
	// SendBuffer is the per-connection outbound queue; a full queue
	// disconnects the client.
	SendBuffer int
	// CanSubscribe, when set, vets a subscription before it is recorded.
	CanSubscribe func(ctx context.Context, showtimeID int64) error
}

type delivery struct {
	client *Client
	userID int64
	topic  string
	msg    []byte
}

type subscription struct {
	client *Client
	topic  string
	on     bool
}

// Hub keeps the connections of this instance indexed by user and topic.
// All index mutations happen on the Run goroutine.
type Hub struct {
	log *slog.Logger
	cfg HubConfig

	upgrader websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	subs       chan subscription
	deliveries chan delivery

	clients map[*Client]struct{}
	users   map[int64]map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	conns    atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	now      func() time.Time
}

func NewHub(log *slog.Logger, cfg HubConfig) *Hub {
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}

	return &Hub{
		log: log,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subs:       make(chan subscription),
		deliveries: make(chan delivery, 1024),
		clients:    make(map[*Client]struct{}),
		users:      make(map[int64]map[*Client]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Run serves the hub until ctx is done or Shutdown is called. On exit every
// connection is closed.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.stop:
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			byUser, ok := h.users[c.userID]
			if !ok {
				byUser = make(map[*Client]struct{})
				h.users[c.userID] = byUser
			}
			byUser[c] = struct{}{}
			metrics.WSConnected()
			h.log.Debug("ws client registered",
				slog.String("client_id", c.id),
				slog.Int64("user_id", c.userID),
			)

		case c := <-h.unregister:
			h.remove(c)

		case s := <-h.subs:
			if _, ok := h.clients[s.client]; !ok {
				continue
			}
			if s.on {
				set, ok := h.topics[s.topic]
				if !ok {
					set = make(map[*Client]struct{})
					h.topics[s.topic] = set
				}
				set[s.client] = struct{}{}
				s.client.topics[s.topic] = struct{}{}
			} else {
				h.leave(s.client, s.topic)
			}

		case d := <-h.deliveries:
			if d.client != nil {
				if _, ok := h.clients[d.client]; ok {
					h.push(d.client, d.msg)
				}
			} else if d.topic != "" {
				for c := range h.topics[d.topic] {
					h.push(c, d.msg)
				}
			} else {
				for c := range h.users[d.userID] {
					h.push(c, d.msg)
				}
			}
		}
	}
}

// Shutdown stops Run and waits for it to close every connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Connections reports the number of connections served by this instance.
func (h *Hub) Connections() int {
	return int(h.conns.Load())
}

func (h *Hub) SendToUser(userID int64, event string, payload any) {
	msg, err := h.encodePayload(event, payload)
	if err != nil {
		h.log.Error("encode direct event", slog.String("event", event), slog.Any("err", err))
		return
	}
	h.deliver(delivery{userID: userID, msg: msg})
}

func (h *Hub) SendToTopic(topic, event string, payload any) {
	msg, err := h.encodePayload(event, payload)
	if err != nil {
		h.log.Error("encode topic event", slog.String("event", event), slog.Any("err", err))
		return
	}
	h.deliver(delivery{topic: topic, msg: msg})
}

func (h *Hub) encodePayload(event string, payload any) ([]byte, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return encode(event, data, h.now())
}

func (h *Hub) deliverRaw(userID int64, topic, event string, data json.RawMessage, ts time.Time) {
	msg, err := encode(event, data, ts)
	if err != nil {
		h.log.Error("encode relayed event", slog.String("event", event), slog.Any("err", err))
		return
	}
	h.deliver(delivery{userID: userID, topic: topic, msg: msg})
}

func (h *Hub) deliver(d delivery) {
	select {
	case h.deliveries <- d:
	case <-h.done:
	default:
		h.log.Warn("realtime delivery queue full, dropping event",
			slog.String("topic", d.topic),
			slog.Int64("user_id", d.userID),
		)
	}
}

// push never blocks the hub: a client that cannot keep up is dropped.
func (h *Hub) push(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("ws client too slow, disconnecting", slog.String("client_id", c.id))
		h.remove(c)
	}
}

func (h *Hub) leave(c *Client, topic string) {
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.topics, topic)
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	for topic := range c.topics {
		h.leave(c, topic)
	}
	if byUser, ok := h.users[c.userID]; ok {
		delete(byUser, c)
		if len(byUser) == 0 {
			delete(h.users, c.userID)
		}
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WSDisconnected()

	h.log.Debug("ws client unregistered",
		slog.String("client_id", c.id),
		slog.Int64("user_id", c.userID),
	)
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.remove(c)
	}
}

// ServeWS upgrades the request and attaches the connection to userID. The
// caller authenticates the request before calling it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		userID:  userID,
		topics:  make(map[string]struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.Burst),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	h.conns.Add(1)
	go c.writePump()
	go c.readPump()

	return nil
}

func (h *Hub) sendUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) sendSubscription(s subscription) bool {
	select {
	case h.subs <- s:
		return true
	case <-h.done:
		return false
	}
}
