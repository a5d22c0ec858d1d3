package api

import (
	"net/http"
	"time"

	"github.com/babelchat/server/internal/session"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the inbound wire envelope. Exactly one action field is
// set per message.
type ClientMessage struct {
	BaseMessage
	Announce *Announce `json:"announce,omitempty"`
	Join     *Join     `json:"join,omitempty"`
	Leave    *Leave    `json:"leave,omitempty"`
	Publish  *Publish  `json:"publish,omitempty"`
	Read     *Read     `json:"read,omitempty"`
}

type Announce struct {
	UserId string `json:"user_id"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	RoomId   string `json:"room_id"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

type Read struct {
	RoomId    string `json:"room_id"`
	MessageId string `json:"message_id"`
}

// ServerMessage is the outbound wire envelope: either a response to a
// client message (correlated by Id) or a server-initiated event.
type ServerMessage struct {
	BaseMessage
	Response *Response      `json:"response,omitempty"`
	Event    *session.Event `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrBadMessage(id int, reason string) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrNotAMember(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not a member of the room",
		},
	}
}

func ErrMessageNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "message not found",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
