package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/session"
	"github.com/babelchat/server/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client bridges a single websocket connection to the session core. Read
// parses client messages and invokes core operations, Write serializes
// responses and outbox events onto the socket.
type Client struct {
	connId string
	userId string
	conn   *websocket.Conn
	core   *session.Server
	outbox *session.Outbox
	send   chan *ServerMessage
	stop   chan struct{}
	once   sync.Once
	log    *zerolog.Logger
}

func NewClient(conn *websocket.Conn, core *session.Server, log *zerolog.Logger) (*Client, error) {
	connId, outbox, err := core.OnConnect()
	if err != nil {
		return nil, err
	}

	return &Client{
		connId: connId,
		conn:   conn,
		core:   core,
		outbox: outbox,
		send:   make(chan *ServerMessage, 16),
		stop:   make(chan struct{}),
		log:    log,
	}, nil
}

func (c *Client) Read() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Str("conn_id", c.connId).Msg("unexpected close")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.queueMessage(ErrBadMessage(0, "malformed message"))
			continue
		}

		if !c.handleMessage(&msg) {
			return
		}
	}
}

// handleMessage processes one client message. A false return terminates
// the read loop and tears down the connection.
func (c *Client) handleMessage(msg *ClientMessage) bool {
	ctx := context.Background()

	switch {
	case msg.Announce != nil:
		return c.handleAnnounce(ctx, msg.Id, msg.Announce)
	case msg.Join != nil:
		c.handleJoin(msg.Id, msg.Join)
	case msg.Leave != nil:
		c.handleLeave(msg.Id, msg.Leave)
	case msg.Publish != nil:
		c.handlePublish(ctx, msg.Id, msg.Publish)
	case msg.Read != nil:
		c.handleRead(ctx, msg.Id, msg.Read)
	default:
		c.queueMessage(ErrBadMessage(msg.Id, "message has no action"))
	}
	return true
}

func (c *Client) handleAnnounce(ctx context.Context, id int, a *Announce) bool {
	if a.UserId == "" {
		c.queueMessage(ErrBadMessage(id, "user_id is required"))
		return true
	}

	if err := c.core.OnAnnounce(ctx, c.connId, a.UserId); err != nil {
		if errors.Is(err, session.ErrAlreadyAnnounced) {
			c.queueMessage(ErrBadMessage(id, "connection already announced"))
			return false
		}
		c.log.Error().Err(err).Str("conn_id", c.connId).Msg("announce failed")
		c.queueMessage(ErrInternalError(id))
		return true
	}

	c.userId = a.UserId
	c.queueMessage(NoErrOK(id, nil))
	return true
}

func (c *Client) handleJoin(id int, j *Join) {
	if !c.announced(id) {
		return
	}
	if j.RoomId == "" {
		c.queueMessage(ErrBadMessage(id, "room_id is required"))
		return
	}

	if err := c.core.OnJoinRoom(c.connId, j.RoomId); err != nil {
		c.log.Error().Err(err).Str("conn_id", c.connId).Msg("join failed")
		c.queueMessage(ErrInternalError(id))
		return
	}
	c.queueMessage(NoErrOK(id, nil))
}

func (c *Client) handleLeave(id int, l *Leave) {
	if !c.announced(id) {
		return
	}
	if l.RoomId == "" {
		c.queueMessage(ErrBadMessage(id, "room_id is required"))
		return
	}

	if err := c.core.OnLeaveRoom(c.connId, l.RoomId); err != nil {
		c.log.Error().Err(err).Str("conn_id", c.connId).Msg("leave failed")
		c.queueMessage(ErrInternalError(id))
		return
	}
	c.queueMessage(NoErrOK(id, nil))
}

func (c *Client) handlePublish(ctx context.Context, id int, p *Publish) {
	if !c.announced(id) {
		return
	}
	if p.RoomId == "" || p.Content == "" {
		c.queueMessage(ErrBadMessage(id, "room_id and content are required"))
		return
	}
	lang := types.Language(p.Language)
	if !lang.Valid() {
		c.queueMessage(ErrBadMessage(id, "unsupported language"))
		return
	}

	res, err := c.core.Dispatch(ctx, p.RoomId, c.userId, p.Content, lang)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotAMember):
			c.queueMessage(ErrNotAMember(id))
		default:
			c.log.Error().Err(err).Str("room_id", p.RoomId).Msg("dispatch failed")
			c.queueMessage(ErrInternalError(id))
		}
		return
	}

	c.queueMessage(NoErrOK(id, map[string]any{
		"message_id":   res.MessageId,
		"translations": res.Translations,
		"created_at":   res.CreatedAt,
	}))
}

func (c *Client) handleRead(ctx context.Context, id int, r *Read) {
	if !c.announced(id) {
		return
	}
	if r.RoomId == "" || r.MessageId == "" {
		c.queueMessage(ErrBadMessage(id, "room_id and message_id are required"))
		return
	}

	if err := c.core.MarkRead(ctx, r.MessageId, c.userId, r.RoomId); err != nil {
		switch {
		case errors.Is(err, database.ErrMessageNotFound):
			c.queueMessage(ErrMessageNotFound(id))
		default:
			c.log.Error().Err(err).Str("message_id", r.MessageId).Msg("mark read failed")
			c.queueMessage(ErrInternalError(id))
		}
		return
	}
	c.queueMessage(NoErrOK(id, nil))
}

func (c *Client) announced(id int) bool {
	if c.userId == "" {
		c.queueMessage(ErrBadMessage(id, "connection not announced"))
		return false
	}
	return true
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				c.log.Error().Err(err).Str("conn_id", c.connId).Msg("failed to write message")
				return
			}
		case ev := <-c.outbox.Events():
			out := &ServerMessage{
				BaseMessage: BaseMessage{Timestamp: Now()},
				Event:       &ev,
			}
			if err := c.writeMessage(out); err != nil {
				c.log.Error().Err(err).Str("conn_id", c.connId).Msg("failed to write event")
				return
			}
		case <-c.outbox.Done():
			c.writeClose(websocket.ClosePolicyViolation, "connection too slow")
			return
		case <-c.stop:
			c.writeClose(websocket.CloseNormalClosure, "")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeMessage(msg *ServerMessage) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) writeClose(code int, reason string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
}

// queueMessage enqueues a response without blocking the read loop. The
// send buffer filling up means the write pump is stuck, so give up.
func (c *Client) queueMessage(msg *ServerMessage) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Str("conn_id", c.connId).Msg("send buffer full, dropping response")
	}
}

func (c *Client) cleanup() {
	c.once.Do(func() {
		if err := c.core.OnDisconnect(context.Background(), c.connId); err != nil {
			c.log.Error().Err(err).Str("conn_id", c.connId).Msg("disconnect cleanup failed")
		}
		close(c.stop)
	})
}
