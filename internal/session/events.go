package session

import (
	"time"

	"github.com/babelchat/server/internal/types"
)

// EventType names an outbound real-time event as it appears on the wire.
type EventType string

const (
	EventUserStatusChanged EventType = "user_status_changed"
	EventUserJoined        EventType = "user_joined"
	EventUserLeft          EventType = "user_left"
	EventReceiveMessage    EventType = "receive_message"
	EventMessageRead       EventType = "message_read"
)

// Event is delivered to connection transports through their outboxes.
// Exactly one payload field is set, matching Type.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Status    *StatusChange  `json:"status,omitempty"`
	Room      *RoomChange    `json:"room,omitempty"`
	Message   *types.Message `json:"message,omitempty"`
	Read      *ReadMark      `json:"read,omitempty"`
}

// StatusChange reports a user's presence transition.
type StatusChange struct {
	UserId string               `json:"user_id"`
	Status types.PresenceStatus `json:"status"`
}

// RoomChange reports a connection joining or leaving a room's live set.
type RoomChange struct {
	RoomId       string `json:"room_id"`
	ConnectionId string `json:"connection_id"`
	UserId       string `json:"user_id,omitempty"`
}

// ReadMark reports that a user has read a message.
type ReadMark struct {
	MessageId string `json:"message_id"`
	UserId    string `json:"user_id"`
	RoomId    string `json:"room_id"`
}
