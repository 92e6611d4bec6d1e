package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/live"
	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	backoffBase        = time.Second
	backoffMax         = 8 * time.Second
	defaultMaxAttempts = 5
)

type Config struct {
	// URL is the form's live endpoint (ws://.../v1/forms/<id>/live).
	URL string
	// MaxAttempts caps consecutive failed connection attempts before the
	// client gives up; 0 means the default.
	MaxAttempts int
	Dialer      *websocket.Dialer
	// OnUpdate receives a snapshot of the merged view after every applied
	// update.
	OnUpdate func(View)
	Logger   *slog.Logger
}

// Client keeps one live subscription to a form's analytics. It reconnects
// with exponential backoff after unexpected closes, never opens a second
// socket for the same form, and merges incoming deltas into a local view.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	attempts int
	manual   bool
	timer    *time.Timer
	view     View
}

func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "dashboard_client", "url", cfg.URL),
		dialer: dialer,
		state:  StateDisconnected,
	}
}

// Connect starts the subscription. Calling it while already connecting or
// connected is a no-op.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.manual = false
	c.attempts = 0
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the socket and suppresses any further reconnect
// attempts until the next explicit Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.state = StateDisconnected
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot of the merged local aggregate.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Clone()
}

func (c *Client) dial() {
	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.scheduleRetry(err)
		return
	}

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.state = StateConnected
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Debug("connected")
	go c.readLoop(conn)
}

// scheduleRetry arms the backoff timer: 1s, 2s, 4s, then 8s per attempt,
// up to the configured attempt cap.
func (c *Client) scheduleRetry(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manual {
		c.state = StateDisconnected
		return
	}

	c.attempts++
	if c.attempts > c.cfg.MaxAttempts {
		c.state = StateDisconnected
		c.logger.Warn("giving up after repeated connection failures", "attempts", c.attempts-1, "error", cause)
		return
	}

	delay := backoffDelay(c.attempts)
	c.state = StateConnecting
	c.logger.Debug("reconnecting", "attempt", c.attempts, "delay", delay, "error", cause)
	c.timer = time.AfterFunc(delay, c.dial)
}

func backoffDelay(attempt int) time.Duration {
	if attempt > 4 {
		return backoffMax
	}
	d := backoffBase << (attempt - 1)
	if d > backoffMax {
		return backoffMax
	}
	return d
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()

			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			manual := c.manual
			c.mu.Unlock()

			if manual {
				return
			}
			// Unexpected close: fall back into the retry path.
			c.scheduleRetry(err)
			return
		}

		var msg live.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("unmarshal frame failed", "error", err)
			continue
		}
		if msg.Type != analytics.EventTypeUpdate {
			continue
		}

		var payload analytics.UpdatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.logger.Warn("unmarshal update payload failed", "error", err)
			continue
		}
		c.applyUpdate(payload)
	}
}

func (c *Client) applyUpdate(payload analytics.UpdatePayload) {
	c.mu.Lock()
	c.view.Merge(payload)
	snapshot := c.view.Clone()
	c.mu.Unlock()

	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(snapshot)
	}
}
