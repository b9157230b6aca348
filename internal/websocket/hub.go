// Package websocket delivers real-time events to connected users.
// Every authenticated socket joins the room named by its user ID; emitting to a user
// writes to every socket in that room. Delivery is best-effort: events for users with
// no open socket are dropped, and clients that cannot keep up are disconnected.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"go.uber.org/zap"
)

const deliveryQueueSize = 1024

// Emitter pushes events to a user's sockets.
// Hub implements it for a single instance; RedisRelay fans out across instances.
type Emitter interface {
	EmitToUser(userID, eventType string, payload interface{})
	DisconnectUser(userID string)
}

// Hub owns the user rooms.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	unicast    chan *delivery
	disconnect chan string

	// emitter routes events raised by clients (typing). Defaults to the hub itself.
	emitter Emitter

	stats *Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rateLimitConfig RateLimitConfig
}

type delivery struct {
	userID    string
	eventType string
	data      []byte
}

// Stats tracks socket activity since the hub started.
type Stats struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	EventsReceived     atomic.Int64
	EventsDelivered    atomic.Int64
	EventsDropped      atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig limits inbound client events.
type RateLimitConfig struct {
	MaxEventsPerSecond int
	BurstSize          int
}

// DefaultRateLimitConfig returns the per-client defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEventsPerSecond: 10,
		BurstSize:          20,
	}
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		rooms:           make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		unicast:         make(chan *delivery, deliveryQueueSize),
		disconnect:      make(chan string, 64),
		stats:           &Stats{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
	h.emitter = h
	return h
}

// SetEmitter routes client-raised events through e, e.g. a RedisRelay.
func (h *Hub) SetEmitter(e Emitter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitter = e
}

func (h *Hub) routeEmitter() Emitter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.emitter
}

// Run is the hub event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("WebSocket hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case d := <-h.unicast:
			h.deliver(d)

		case userID := <-h.disconnect:
			h.disconnectUser(userID)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.UserID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.UserID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	h.stats.TotalConnections.Add(1)
	active := h.stats.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Inc()

	logger.Log.Debug("Client joined room",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

// removeClient takes the client out of its room and closes its send queue.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	found := false
	if room, ok := h.rooms[client.UserID]; ok {
		if _, ok := room[client]; ok {
			found = true
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.UserID)
			}
		}
	}
	h.mu.Unlock()

	client.closeSend()
	if !found {
		return
	}

	active := h.stats.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Dec()
	logger.Log.Debug("Client left room",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

func (h *Hub) deliver(d *delivery) {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.rooms[d.userID] {
		if client.trySend(d.data) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.stats.ConnectionsDropped.Add(1)
		logger.Log.Warn("Dropping slow client",
			logger.WithUserID(client.UserID),
			logger.WithEvent(d.eventType))
		h.removeClient(client)
	}

	if delivered == 0 {
		h.stats.EventsDropped.Add(1)
		metrics.Get().RealtimeEventsTotal.WithLabelValues(d.eventType, metrics.OutcomeDropped).Inc()
		return
	}
	h.stats.EventsDelivered.Add(int64(delivered))
	metrics.Get().RealtimeEventsTotal.WithLabelValues(d.eventType, metrics.OutcomeDelivered).Inc()
}

func (h *Hub) disconnectUser(userID string) {
	h.mu.Lock()
	room := h.rooms[userID]
	delete(h.rooms, userID)
	h.mu.Unlock()

	if len(room) == 0 {
		return
	}

	data, _ := NewEvent(EventSystem, SystemPayload{Event: SystemLoggedOut}).Marshal()
	for client := range room {
		client.trySend(data)
		client.closeSend()
		h.stats.ActiveConnections.Add(-1)
		metrics.Get().WebSocketConnections.Dec()
	}
	logger.Log.Info("User sockets left room",
		logger.WithUserID(userID),
		zap.Int("sockets", len(room)))
}

// EmitToUser pushes an event to every socket of userID on this instance.
// It never blocks; the event is dropped if the delivery queue is full.
func (h *Hub) EmitToUser(userID, eventType string, payload interface{}) {
	data, err := NewEvent(eventType, payload).Marshal()
	if err != nil {
		h.stats.Errors.Add(1)
		logger.ErrorWithFields("Failed to encode event", err,
			logger.WithUserID(userID),
			logger.WithEvent(eventType))
		return
	}
	h.EmitRaw(userID, eventType, data)
}

// EmitRaw enqueues an already encoded event for userID.
func (h *Hub) EmitRaw(userID, eventType string, data []byte) {
	if userID == "" {
		return
	}
	select {
	case <-h.ctx.Done():
		return
	default:
	}
	select {
	case h.unicast <- &delivery{userID: userID, eventType: eventType, data: data}:
	default:
		h.stats.EventsDropped.Add(1)
		metrics.Get().RealtimeEventsTotal.WithLabelValues(eventType, metrics.OutcomeDropped).Inc()
		logger.Log.Warn("Delivery queue full, dropping event",
			logger.WithUserID(userID),
			logger.WithEvent(eventType))
	}
}

// DisconnectUser removes all of userID's sockets from their room after telling them why.
func (h *Hub) DisconnectUser(userID string) {
	select {
	case h.disconnect <- userID:
	case <-h.ctx.Done():
	}
}

// Register adds a client to its user's room.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.closeSend()
	}
}

// Unregister removes a client from its room.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether userID has an open socket on this instance.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

// ConnectionCount returns the number of sockets userID has open.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// OnlineUsers returns the IDs of users with at least one socket.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.rooms))
	for userID := range h.rooms {
		users = append(users, userID)
	}
	return users
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	EventsReceived     int64 `json:"events_received"`
	EventsDelivered    int64 `json:"events_delivered"`
	EventsDropped      int64 `json:"events_dropped"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// Snapshot returns the current stats.
func (h *Hub) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalConnections:   h.stats.TotalConnections.Load(),
		ActiveConnections:  h.stats.ActiveConnections.Load(),
		EventsReceived:     h.stats.EventsReceived.Load(),
		EventsDelivered:    h.stats.EventsDelivered.Load(),
		EventsDropped:      h.stats.EventsDropped.Load(),
		Errors:             h.stats.Errors.Load(),
		ConnectionsDropped: h.stats.ConnectionsDropped.Load(),
	}
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d events=rx:%d/tx:%d dropped=%d errors=%d slow=%d",
		s.ActiveConnections, s.TotalConnections,
		s.EventsReceived, s.EventsDelivered,
		s.EventsDropped, s.Errors, s.ConnectionsDropped,
	)
}

// Shutdown stops the hub and closes every socket.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		logger.Log.Info("WebSocket hub stopped", zap.String("stats", h.Snapshot().String()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	data, _ := NewEvent(EventSystem, SystemPayload{Event: SystemServerShutdown}).Marshal()
	closed := 0
	for _, room := range rooms {
		for client := range room {
			client.trySend(data)
			client.closeSend()
			closed++
		}
	}
	h.stats.ActiveConnections.Add(-int64(closed))
	metrics.Get().WebSocketConnections.Sub(float64(closed))

	// Drain clients that raced with shutdown.
	for {
		select {
		case client := <-h.register:
			client.closeSend()
		default:
			logger.Log.Info("Closed sockets during shutdown", zap.Int("count", closed))
			return
		}
	}
}

// SetRateLimitConfig changes the limit applied to clients created afterwards.
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

func (h *Hub) rateLimit() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}

var _ Emitter = (*Hub)(nil)
