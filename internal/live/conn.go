package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Conn wraps one dashboard websocket. Viewers only receive; inbound frames
// are read solely to service pong deadlines and detect closure.
type Conn struct {
	ws     *websocket.Conn
	formID string
	logger *slog.Logger
	send   chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewConn(ws *websocket.Conn, formID string, logger *slog.Logger) *Conn {
	return &Conn{
		ws:     ws,
		formID: formID,
		logger: logger.With("form_id", formID),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) FormID() string {
	return c.formID
}

// Send queues raw bytes for the write pump. It never blocks: when the buffer
// is full the frame is dropped, so one slow viewer cannot stall a broadcast.
func (c *Conn) Send(raw []byte) {
	select {
	case <-c.done:
	case c.send <- raw:
	default:
		c.logger.Warn("send buffer full, dropping update")
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

func (c *Conn) readPump(hub *Hub) {
	defer func() {
		c.Close()
		hub.Leave(c)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", "error", err)
			}
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case raw := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Debug("write error", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
