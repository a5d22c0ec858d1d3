package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/session"
	"github.com/babelchat/server/internal/translate"
	"github.com/babelchat/server/internal/types"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(s.serveWs))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readResponse skips interleaved events until a response arrives.
func readResponse(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()

	for i := 0; i < 8; i++ {
		msg := readServerMessage(t, conn)
		if msg.Response != nil {
			return msg
		}
	}
	t.Fatal("no response received")
	return ServerMessage{}
}

func TestWebsocketSession(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("ListRooms", mock.Anything, "alice").Return([]string{}, nil).Maybe()
	db.On("IsMember", mock.Anything, "room-1", "alice").Return(true, nil).Once()
	db.On("SaveMessage", mock.Anything, mock.MatchedBy(func(m types.Message) bool {
		return m.RoomId == "room-1" && m.SenderId == "alice" && m.Content == "hello"
	})).Return("msg-1", nil).Once()
	db.On("AppendReader", mock.Anything, "msg-1", "alice").Return(true, nil).Once()

	tr := &translate.MockTranslator{}
	tr.On("Translate", mock.Anything, "hello", types.LangEnglish).
		Return(types.TranslationMap{
			types.LangEnglish: "hello",
			types.LangKorean:  "안녕하세요",
			types.LangMalay:   "helo",
		}).Once()

	s := newTestApi(t, db, tr)
	conn := dialTestServer(t, s)

	// announce
	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Announce:    &Announce{UserId: "alice"},
	}))
	resp := readResponse(t, conn)
	assert.Equal(t, 1, resp.Id)
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode)

	// join
	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Join:        &Join{RoomId: "room-1"},
	}))
	resp = readResponse(t, conn)
	assert.Equal(t, 2, resp.Id)
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode)

	// publish
	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 3},
		Publish:     &Publish{RoomId: "room-1", Content: "hello", Language: "en"},
	}))

	var gotResp, gotEvent bool
	for i := 0; i < 4 && !(gotResp && gotEvent); i++ {
		msg := readServerMessage(t, conn)
		switch {
		case msg.Response != nil:
			assert.Equal(t, 3, msg.Id)
			assert.Equal(t, http.StatusOK, msg.Response.ResponseCode)
			assert.Equal(t, "msg-1", msg.Response.Data["message_id"])
			gotResp = true
		case msg.Event != nil && msg.Event.Type == session.EventReceiveMessage:
			require.NotNil(t, msg.Event.Message)
			assert.Equal(t, "msg-1", msg.Event.Message.Id)
			assert.Equal(t, "안녕하세요", msg.Event.Message.Translations[types.LangKorean])
			assert.Equal(t, []string{"alice"}, msg.Event.Message.ReadBy)
			gotEvent = true
		}
	}
	assert.True(t, gotResp, "expected publish response")
	assert.True(t, gotEvent, "expected message event")

	// mark read
	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 4},
		Read:        &Read{RoomId: "room-1", MessageId: "msg-1"},
	}))

	gotResp, gotEvent = false, false
	for i := 0; i < 4 && !(gotResp && gotEvent); i++ {
		msg := readServerMessage(t, conn)
		switch {
		case msg.Response != nil:
			assert.Equal(t, 4, msg.Id)
			assert.Equal(t, http.StatusOK, msg.Response.ResponseCode)
			gotResp = true
		case msg.Event != nil && msg.Event.Type == session.EventMessageRead:
			require.NotNil(t, msg.Event.Read)
			assert.Equal(t, "msg-1", msg.Event.Read.MessageId)
			assert.Equal(t, "alice", msg.Event.Read.UserId)
			gotEvent = true
		}
	}
	assert.True(t, gotResp, "expected read response")
	assert.True(t, gotEvent, "expected read event")

	db.AssertExpectations(t)
	tr.AssertExpectations(t)
}

func TestWebsocketRequiresAnnounce(t *testing.T) {
	db := &database.MockChatRepository{}
	s := newTestApi(t, db, &translate.MockTranslator{})
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Join:        &Join{RoomId: "room-1"},
	}))

	resp := readResponse(t, conn)
	assert.Equal(t, http.StatusBadRequest, resp.Response.ResponseCode)
	assert.Equal(t, "connection not announced", resp.Response.Error)
}

func TestWebsocketRejectsMalformedMessage(t *testing.T) {
	db := &database.MockChatRepository{}
	s := newTestApi(t, db, &translate.MockTranslator{})
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	resp := readResponse(t, conn)
	assert.Equal(t, http.StatusBadRequest, resp.Response.ResponseCode)
}

func TestWebsocketNonMemberPublish(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("ListRooms", mock.Anything, "mallory").Return([]string{}, nil).Maybe()
	db.On("IsMember", mock.Anything, "room-1", "mallory").Return(false, nil).Once()

	s := newTestApi(t, db, &translate.MockTranslator{})
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Announce:    &Announce{UserId: "mallory"},
	}))
	readResponse(t, conn)

	require.NoError(t, conn.WriteJSON(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Publish:     &Publish{RoomId: "room-1", Content: "hi", Language: "en"},
	}))

	resp := readResponse(t, conn)
	assert.Equal(t, http.StatusForbidden, resp.Response.ResponseCode)
	db.AssertExpectations(t)
}
