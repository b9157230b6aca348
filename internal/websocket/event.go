package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime accepts Unix millisecond integers or RFC3339 strings.
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds or an RFC3339 string")
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always writes RFC3339.
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Event types pushed to or received from sockets
const (
	EventSystem         = "system"
	EventPing           = "ping"
	EventPong           = "pong"
	EventError          = "error"
	EventNewMessage     = "new_message"
	EventMessagesRead   = "messages_read"
	EventMessageDeleted = "message_deleted"
	EventNotification   = "notification"
	EventTyping         = "typing"
	EventLeave          = "leave"
)

// System event names carried in SystemPayload.Event
const (
	SystemConnected      = "connected"
	SystemLoggedOut      = "logged_out"
	SystemServerShutdown = "server_shutdown"
)

// Event is the envelope written to every socket.
type Event struct {
	Type      string       `json:"type"`
	Payload   interface{}  `json:"payload,omitempty"`
	ID        string       `json:"id,omitempty"`
	ReplyTo   string       `json:"reply_to,omitempty"`
	Timestamp FlexibleTime `json:"timestamp"`
	raw       json.RawMessage
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates an event answering the client event original.
func NewReply(original *Event, eventType string, payload interface{}) *Event {
	e := NewEvent(eventType, payload)
	e.ReplyTo = original.ID
	return e
}

// NewErrorEvent creates an error event.
func NewErrorEvent(code, message string) *Event {
	return NewEvent(EventError, ErrorPayload{Code: code, Message: message})
}

// Marshal encodes the event for the wire.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalJSON keeps the raw payload so it can be decoded into a typed struct later.
func (e *Event) UnmarshalJSON(b []byte) error {
	var wire struct {
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		ID        string          `json:"id"`
		ReplyTo   string          `json:"reply_to"`
		Timestamp *FlexibleTime   `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	e.Type = wire.Type
	e.ID = wire.ID
	e.ReplyTo = wire.ReplyTo
	e.raw = wire.Payload
	e.Payload = nil
	if len(wire.Payload) > 0 {
		e.Payload = wire.Payload
	}
	if wire.Timestamp != nil {
		e.Timestamp = *wire.Timestamp
	}
	return nil
}

// ParsePayload decodes the payload of a received event into v.
func (e *Event) ParsePayload(v interface{}) error {
	if len(e.raw) > 0 {
		return json.Unmarshal(e.raw, v)
	}
	if e.Payload == nil {
		return fmt.Errorf("event %q has no payload", e.Type)
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ErrorPayload is the payload of an error event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload is sent by clients measuring latency
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload answers a ping
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// SystemPayload is the payload of a system event
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// TypingPayload is relayed from one user's socket to the conversation partner.
// Clients send RecipientID; the server fills in UserID.
type TypingPayload struct {
	UserID      string `json:"user_id,omitempty"`
	RecipientID string `json:"recipient_id"`
	IsTyping    bool   `json:"is_typing"`
}
