package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/database"
)

// ReadReceiptSync records read marks and rebroadcasts them to the room.
// Idempotence is delegated to the store: a repeated (message, user) mark
// produces no second broadcast.
type ReadReceiptSync struct {
	messages  database.MessageStore
	broadcast func(roomId string, ev Event, skipConnId string)
	log       *zerolog.Logger
	now       func() time.Time
}

// MarkRead appends userId to the message's read set. It reports whether a
// broadcast was emitted; already-read marks return false with no error.
// Unknown messages fail with database.ErrMessageNotFound.
func (rs *ReadReceiptSync) MarkRead(ctx context.Context, messageId, userId, roomId string) (bool, error) {
	added, err := rs.messages.AppendReader(ctx, messageId, userId)
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}

	rs.broadcast(roomId, Event{
		Type:      EventMessageRead,
		Timestamp: rs.now().UTC(),
		Read: &ReadMark{
			MessageId: messageId,
			UserId:    userId,
			RoomId:    roomId,
		},
	}, "")

	rs.log.Debug().
		Str("message", messageId).
		Str("user", userId).
		Str("room", roomId).
		Msg("read receipt recorded")

	return true, nil
}
