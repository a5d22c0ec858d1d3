package database

import (
	"context"
	"errors"

	"github.com/babelchat/server/internal/types"
)

var ErrMessageNotFound = errors.New("message not found")

// MembershipStore answers durable room membership questions. Membership is
// owned by the REST layer; the session core only reads it.
type MembershipStore interface {
	IsMember(ctx context.Context, roomId, userId string) (bool, error)
	ListMembers(ctx context.Context, roomId string) ([]string, error)
	ListRooms(ctx context.Context, userId string) ([]string, error)
}

// MessageStore persists chat messages and their read state.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg types.Message) (string, error)
	// AppendReader records that userId has read the message. It reports
	// false when the user was already in the read set, making repeated
	// read marks no-ops. Returns ErrMessageNotFound for unknown messages.
	AppendReader(ctx context.Context, messageId, userId string) (bool, error)
	MessageExists(ctx context.Context, messageId string) (bool, error)
	GetMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error)
}

// ChatRepository is the full store surface the server binary wires up.
type ChatRepository interface {
	MembershipStore
	MessageStore
	Ping(ctx context.Context) error
	Close() error
}
