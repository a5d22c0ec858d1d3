package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/translate"
	"github.com/babelchat/server/internal/types"
)

// DispatchResult reports the persisted message identity and the languages
// that were actually translated, so callers can surface gaps to the sender.
type DispatchResult struct {
	MessageId    string
	Translations types.TranslationMap
	CreatedAt    time.Time
}

// Dispatcher orchestrates message delivery: membership validation,
// translation, persistence, then broadcast, in that order. A message that
// fails to persist is never broadcast.
type Dispatcher struct {
	membership database.MembershipStore
	messages   database.MessageStore
	translator translate.Translator
	broadcast  func(roomId string, ev Event, skipConnId string)
	log        *zerolog.Logger
	now        func() time.Time
}

func (d *Dispatcher) Dispatch(ctx context.Context, roomId, senderId, content string, source types.Language) (DispatchResult, error) {
	member, err := d.membership.IsMember(ctx, roomId, senderId)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("membership check: %w", err)
	}
	if !member {
		return DispatchResult{}, ErrNotAMember
	}

	// Degraded maps are accepted; translation never fails a dispatch.
	translations := d.translator.Translate(ctx, content, source)

	msg := types.Message{
		RoomId:           roomId,
		SenderId:         senderId,
		Content:          content,
		OriginalLanguage: source,
		Translations:     translations,
		ReadBy:           []string{senderId},
		CreatedAt:        d.now().UTC(),
	}

	id, err := d.messages.SaveMessage(ctx, msg)
	if err != nil {
		return DispatchResult{}, &PersistenceError{Err: err}
	}
	msg.Id = id

	d.broadcast(roomId, Event{
		Type:      EventReceiveMessage,
		Timestamp: msg.CreatedAt,
		Message:   &msg,
	}, "")

	d.log.Debug().
		Str("room", roomId).
		Str("sender", senderId).
		Str("message", id).
		Int("languages", len(translations)).
		Msg("message dispatched")

	return DispatchResult{
		MessageId:    id,
		Translations: translations,
		CreatedAt:    msg.CreatedAt,
	}, nil
}
