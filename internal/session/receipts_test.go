package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/testutil"
)

func newTestReceiptSync(t *testing.T, db *database.MockChatRepository) (*ReadReceiptSync, *[]Event) {
	t.Helper()

	var broadcasts []Event
	rs := &ReadReceiptSync{
		messages: db,
		broadcast: func(roomId string, ev Event, skipConnId string) {
			broadcasts = append(broadcasts, ev)
		},
		log: testutil.TestLogger(t),
		now: time.Now,
	}
	return rs, &broadcasts
}

func TestMarkReadIsIdempotent(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("AppendReader", mock.Anything, "msg-1", "user-1").Return(true, nil).Once()
	db.On("AppendReader", mock.Anything, "msg-1", "user-1").Return(false, nil).Once()

	rs, broadcasts := newTestReceiptSync(t, db)

	emitted, err := rs.MarkRead(context.Background(), "msg-1", "user-1", "room-1")
	require.NoError(t, err)
	assert.True(t, emitted, "expected first mark to broadcast")

	emitted, err = rs.MarkRead(context.Background(), "msg-1", "user-1", "room-1")
	require.NoError(t, err)
	assert.False(t, emitted, "expected repeated mark to be a no-op")

	require.Len(t, *broadcasts, 1, "expected exactly one broadcast for repeated marks")
	ev := (*broadcasts)[0]
	assert.Equal(t, EventMessageRead, ev.Type)
	require.NotNil(t, ev.Read)
	assert.Equal(t, "msg-1", ev.Read.MessageId)
	assert.Equal(t, "user-1", ev.Read.UserId)
	assert.Equal(t, "room-1", ev.Read.RoomId)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("AppendReader", mock.Anything, "missing", "user-1").Return(false, database.ErrMessageNotFound).Once()

	rs, broadcasts := newTestReceiptSync(t, db)

	_, err := rs.MarkRead(context.Background(), "missing", "user-1", "room-1")
	assert.ErrorIs(t, err, database.ErrMessageNotFound)
	assert.Empty(t, *broadcasts)
}
