package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/hirewire/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var errClientClosed = errors.New("client connection closed")

// Client is one socket in a user's room.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter allows maxPerSecond events with bursts up to burst.
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow consumes a token if one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += now.Sub(r.lastTime).Seconds() * r.refill
	r.lastTime = now
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient wraps an accepted connection for userID.
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := hub.rateLimit()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(cfg.MaxEventsPerSecond, cfg.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// trySend queues data without blocking. It reports false when the queue is full or closed.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue once; WritePump flushes what is queued and closes the socket.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ReadPump reads client events until the connection fails. It blocks.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				logger.Log.Debug("Client disconnected", logger.WithUserID(c.UserID))
			case c.ctx.Err() == nil:
				logger.Log.Debug("Client read failed", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.stats.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many events, slow down")
			continue
		}
		c.hub.stats.EventsReceived.Add(1)

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.SendError("invalid_json", "Failed to parse event")
			continue
		}
		c.handleEvent(&event)
	}
}

// WritePump writes queued events and keepalive pings. It returns when the send queue closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Log.Debug("Client write failed", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.stats.Errors.Add(1)
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventPing, "heartbeat":
		c.handlePing(event)
	case EventTyping:
		c.handleTyping(event)
	case EventLeave:
		c.hub.Unregister(c)
	default:
		c.SendError("unknown_type", fmt.Sprintf("Unknown event type: %s", event.Type))
	}
}

func (c *Client) handlePing(event *Event) {
	var ping PingPayload
	_ = event.ParsePayload(&ping)

	serverTime := time.Now().UnixMilli()
	latency := int64(0)
	if ping.ClientTime > 0 {
		latency = serverTime - ping.ClientTime
	}
	_ = c.Send(NewReply(event, EventPong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    latency,
	}))
}

func (c *Client) handleTyping(event *Event) {
	var typing TypingPayload
	if err := event.ParsePayload(&typing); err != nil || typing.RecipientID == "" {
		c.SendError("invalid_payload", "typing requires recipient_id")
		return
	}
	if typing.RecipientID == c.UserID {
		return
	}
	typing.UserID = c.UserID
	c.hub.routeEmitter().EmitToUser(typing.RecipientID, EventTyping, typing)
}

// Send queues an event for this socket only.
func (c *Client) Send(event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return err
	}
	if !c.trySend(data) {
		return errClientClosed
	}
	return nil
}

// SendError queues an error event.
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorEvent(code, message))
}

// Close tears down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// IsClosed reports whether Close has run.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Info returns a description of the connection.
func (c *Client) Info() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientInfo{
		UserID:      c.UserID,
		Username:    c.Username,
		ConnectedAt: c.ConnectedAt,
		LastPingAt:  c.LastPingAt,
		RemoteAddr:  c.RemoteAddr,
		UserAgent:   c.UserAgent,
	}
}

// ClientInfo describes a connection.
type ClientInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPingAt  time.Time `json:"last_ping_at"`
	RemoteAddr  string    `json:"remote_addr"`
	UserAgent   string    `json:"user_agent"`
}
