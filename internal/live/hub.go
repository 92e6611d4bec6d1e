package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	formChannel      = "form:%s:analytics"
	resubscribeDelay = time.Second
)

// Message is the JSON frame pushed to dashboard subscribers.
type Message struct {
	Type   string          `json:"type"`
	FormID string          `json:"formId"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type room struct {
	conns  map[*Conn]struct{}
	cancel context.CancelFunc
}

// Hub is the form-scoped subscriber registry. Broadcasts go through redis
// pub/sub so every server instance fans out to its own local connections; a
// per-room subscriber goroutine runs while the room has members. Without a
// redis client the hub degrades to single-instance local delivery.
type Hub struct {
	redis  *redis.Client
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		redis:  redisClient,
		logger: logger.With("component", "hub"),
		rooms:  make(map[string]*room),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Join registers a connection under the form's room. A connection belongs to
// exactly one room for its lifetime.
func (h *Hub) Join(c *Conn, formID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[formID]
	if !ok {
		subCtx, subCancel := context.WithCancel(h.ctx)
		r = &room{conns: make(map[*Conn]struct{}), cancel: subCancel}
		h.rooms[formID] = r
		if h.redis != nil {
			h.wg.Add(1)
			go h.subscribe(subCtx, formID)
		}
	}
	r.conns[c] = struct{}{}
	h.logger.Debug("connection joined", "form_id", formID, "room_size", len(r.conns))
}

// Leave removes a connection from its room; safe to call on a handle that
// was already removed. An emptied room is torn down, which never prevents a
// later Join from recreating it.
func (h *Hub) Leave(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.formID]
	if !ok {
		return
	}
	if _, member := r.conns[c]; !member {
		return
	}
	delete(r.conns, c)
	h.logger.Debug("connection left", "form_id", c.formID, "room_size", len(r.conns))

	if len(r.conns) == 0 {
		r.cancel()
		delete(h.rooms, c.formID)
	}
}

// Broadcast delivers a message to every connection joined to the form's
// room, on every instance. A room with no subscribers is not an error.
func (h *Hub) Broadcast(formID, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast payload", "error", err, "form_id", formID)
		return
	}
	raw, err := json.Marshal(Message{Type: msgType, FormID: formID, Data: data})
	if err != nil {
		h.logger.Error("marshal broadcast message", "error", err, "form_id", formID)
		return
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), fmt.Sprintf(formChannel, formID), raw).Err()
		if err == nil {
			return
		}
		h.logger.Warn("redis publish failed, delivering locally", "error", err, "form_id", formID)
	}
	h.deliver(formID, raw)
}

// deliver fans raw bytes out to the local members of a room. Sends never
// block: a dead or slow connection drops its copy without affecting the
// others.
func (h *Hub) deliver(formID string, raw []byte) {
	h.mu.RLock()
	r, ok := h.rooms[formID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	conns := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Send(raw)
	}
}

// subscribe runs the room's redis subscriber until the room is torn down.
// A receive error must not silence the room while members are still joined,
// so it resubscribes after a short delay instead of exiting.
func (h *Hub) subscribe(ctx context.Context, formID string) {
	defer h.wg.Done()

	for {
		pubsub := h.redis.Subscribe(ctx, fmt.Sprintf(formChannel, formID))
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				break
			}
			h.deliver(formID, []byte(msg.Payload))
		}
		pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("room subscriber lost, resubscribing", "form_id", formID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

// Stats reports total and per-room connection counts.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	Rooms            map[string]int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{Rooms: make(map[string]int, len(h.rooms))}
	for formID, r := range h.rooms {
		stats.Rooms[formID] = len(r.conns)
		stats.TotalConnections += len(r.conns)
	}
	return stats
}

// Close tears down every room and closes every connection.
func (h *Hub) Close() error {
	h.cancel()
	h.wg.Wait()

	h.mu.Lock()
	conns := make([]*Conn, 0)
	for formID, r := range h.rooms {
		for c := range r.conns {
			conns = append(conns, c)
		}
		delete(h.rooms, formID)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}
