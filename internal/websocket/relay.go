package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the pub/sub channel shared by all instances.
const DefaultRelayChannel = "hirewire:realtime"

const publishTimeout = 2 * time.Second

const (
	relayKindEvent      = "event"
	relayKindDisconnect = "disconnect"
)

// relayEnvelope is what travels over Redis. Data is the encoded Event.
type relayEnvelope struct {
	Kind      string          `json:"kind"`
	Origin    string          `json:"origin"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RedisRelay publishes events to every instance so a user's sockets receive them
// wherever they are connected. Each instance runs Run to deliver into its own Hub.
type RedisRelay struct {
	hub     *Hub
	client  redis.UniversalClient
	channel string
	origin  string
}

// NewRedisRelay creates a relay for hub. An empty channel uses DefaultRelayChannel.
func NewRedisRelay(hub *Hub, client redis.UniversalClient, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		hub:     hub,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// EmitToUser publishes the event. If Redis is unreachable the event is delivered
// to local sockets only.
func (r *RedisRelay) EmitToUser(userID, eventType string, payload interface{}) {
	data, err := NewEvent(eventType, payload).Marshal()
	if err != nil {
		logger.ErrorWithFields("Failed to encode event", err, logger.WithEvent(eventType))
		return
	}
	env := relayEnvelope{
		Kind:      relayKindEvent,
		Origin:    r.origin,
		UserID:    userID,
		EventType: eventType,
		Data:      data,
	}
	if err := r.publish(env); err != nil {
		logger.WarnWithFields("Relay publish failed, delivering locally", err,
			logger.WithUserID(userID), logger.WithEvent(eventType))
		metrics.Get().ErrorsTotal.WithLabelValues("relay").Inc()
		r.hub.EmitRaw(userID, eventType, data)
		return
	}
	metrics.Get().RealtimeEventsTotal.WithLabelValues(eventType, metrics.OutcomeRelayed).Inc()
}

// DisconnectUser asks every instance to drop userID's sockets.
func (r *RedisRelay) DisconnectUser(userID string) {
	env := relayEnvelope{Kind: relayKindDisconnect, Origin: r.origin, UserID: userID}
	if err := r.publish(env); err != nil {
		logger.WarnWithFields("Relay publish failed, disconnecting locally", err, logger.WithUserID(userID))
		metrics.Get().ErrorsTotal.WithLabelValues("relay").Inc()
		r.hub.DisconnectUser(userID)
	}
}

func (r *RedisRelay) publish(env relayEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, r.channel, body).Err()
}

// Run subscribes to the relay channel and delivers into the local hub until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	logger.Log.Info("Realtime relay subscribed", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) dispatch(body []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		logger.WarnWithFields("Dropping malformed relay message", err)
		return
	}
	switch env.Kind {
	case relayKindEvent:
		r.hub.EmitRaw(env.UserID, env.EventType, env.Data)
	case relayKindDisconnect:
		r.hub.DisconnectUser(env.UserID)
	default:
		logger.Log.Warn("Unknown relay message kind", zap.String("kind", env.Kind))
	}
}

var _ Emitter = (*RedisRelay)(nil)
