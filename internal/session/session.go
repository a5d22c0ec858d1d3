// Package session implements the real-time core of the chat service: it
// tracks live connections and their rooms, derives user presence, fans
// events out to room subscribers, and drives per-message translation
// without blocking delivery. All state here is process-lifetime only and
// is rebuilt from zero on restart; the store remains the source of truth
// for membership, messages, and read receipts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/stats"
	"github.com/babelchat/server/internal/translate"
	"github.com/babelchat/server/internal/types"
)

const (
	MetricActiveConnections  = "NumActiveConnections"
	MetricOnlineUsers        = "NumOnlineUsers"
	MetricActiveRooms        = "NumActiveRooms"
	MetricMessagesDispatched = "NumMessagesDispatched"
	MetricReadReceipts       = "NumReadReceipts"
	MetricDroppedConnections = "NumDroppedConnections"
)

// Server is the surface the transport layer drives. One logical task per
// live connection calls into it concurrently.
type Server struct {
	log        *zerolog.Logger
	stats      stats.StatsProvider
	registry   *Registry
	presence   *PresenceTracker
	mux        *Multiplexer
	dispatcher *Dispatcher
	receipts   *ReadReceiptSync
	membership database.MembershipStore
	now        func() time.Time

	// presenceMu serializes presence transitions together with the
	// live-connection count they are derived from, so a disconnect racing
	// a reconnect cannot leave a live user reported offline. Status
	// broadcasts happen under it too, keeping event order consistent with
	// the transitions.
	presenceMu sync.Mutex
}

func NewServer(
	logger *zerolog.Logger,
	membership database.MembershipStore,
	messages database.MessageStore,
	translator translate.Translator,
	su stats.StatsProvider,
	outboxSize int,
) *Server {
	su.RegisterMetric(MetricActiveConnections)
	su.RegisterMetric(MetricOnlineUsers)
	su.RegisterMetric(MetricActiveRooms)
	su.RegisterMetric(MetricMessagesDispatched)
	su.RegisterMetric(MetricReadReceipts)
	su.RegisterMetric(MetricDroppedConnections)

	s := &Server{
		log:        logger,
		stats:      su,
		registry:   NewRegistry(),
		presence:   NewPresenceTracker(),
		mux:        NewMultiplexer(outboxSize),
		membership: membership,
		now:        time.Now,
	}

	s.dispatcher = &Dispatcher{
		membership: membership,
		messages:   messages,
		translator: translator,
		broadcast:  s.deliver,
		log:        logger,
		now:        func() time.Time { return s.now() },
	}

	s.receipts = &ReadReceiptSync{
		messages:  messages,
		broadcast: s.deliver,
		log:       logger,
		now:       func() time.Time { return s.now() },
	}

	return s
}

// OnConnect registers a new connection and returns its id together with
// the outbox the transport must drain.
func (s *Server) OnConnect() (string, *Outbox, error) {
	connId, err := s.registry.Register()
	if err != nil {
		return "", nil, err
	}

	ob := s.mux.AddConnection(connId)
	s.stats.Incr(MetricActiveConnections)
	s.log.Debug().Str("conn", connId).Msg("connection registered")

	return connId, ob, nil
}

// OnAnnounce binds a user identity to the connection. A user with no
// prior live connection transitions online and the rooms they are a
// durable member of are notified.
func (s *Server) OnAnnounce(ctx context.Context, connId, userId string) error {
	if _, err := s.registry.Announce(connId, userId); err != nil {
		return err
	}

	// The presence transition is decided under presenceMu, not from the
	// registry's return value: a disconnect racing this announce must not
	// land a stale offline after the user is live again.
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	if s.presence.SetOnline(userId) {
		s.stats.Incr(MetricOnlineUsers)
		s.log.Debug().Str("user", userId).Msg("user online")
		s.broadcastStatus(ctx, userId, types.StatusOnline)
	}

	return nil
}

// OnJoinRoom adds the connection to the room in the registry and the
// multiplexer as one logical operation and notifies the room. Joining a
// room the connection is already in is a no-op.
func (s *Server) OnJoinRoom(connId, roomId string) error {
	changed, err := s.registry.Join(connId, roomId)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	_, created := s.mux.Subscribe(roomId, connId)
	if created {
		s.stats.Incr(MetricActiveRooms)
	}

	userId, _ := s.registry.UserOf(connId)
	s.deliver(roomId, Event{
		Type:      EventUserJoined,
		Timestamp: s.now().UTC(),
		Room:      &RoomChange{RoomId: roomId, ConnectionId: connId, UserId: userId},
	}, connId)

	return nil
}

// OnLeaveRoom removes the connection from the room. Leaving a room the
// connection is not in is a no-op.
func (s *Server) OnLeaveRoom(connId, roomId string) error {
	changed, err := s.registry.Leave(connId, roomId)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	_, pruned := s.mux.Unsubscribe(roomId, connId)
	if pruned {
		s.stats.Decr(MetricActiveRooms)
	}

	userId, _ := s.registry.UserOf(connId)
	s.deliver(roomId, Event{
		Type:      EventUserLeft,
		Timestamp: s.now().UTC(),
		Room:      &RoomChange{RoomId: roomId, ConnectionId: connId, UserId: userId},
	}, connId)

	return nil
}

// OnDisconnect removes the connection and all its room memberships. If it
// was the user's last live connection the user goes offline and the rooms
// they are a durable member of are notified.
func (s *Server) OnDisconnect(ctx context.Context, connId string) error {
	pruned := s.mux.RemoveConnection(connId)
	for i := 0; i < pruned; i++ {
		s.stats.Decr(MetricActiveRooms)
	}

	res, err := s.registry.Unregister(connId)
	if err != nil {
		return err
	}

	s.stats.Decr(MetricActiveConnections)

	ts := s.now().UTC()
	for _, roomId := range res.Rooms {
		s.deliver(roomId, Event{
			Type:      EventUserLeft,
			Timestamp: ts,
			Room:      &RoomChange{RoomId: roomId, ConnectionId: connId, UserId: res.UserId},
		}, connId)
	}

	if res.UserId != "" {
		// Re-check the live-connection count under presenceMu rather than
		// trusting LastForUser: the user may have reconnected and announced
		// between Unregister and here, and that announce must win.
		s.presenceMu.Lock()
		if s.registry.LiveConnections(res.UserId) == 0 && s.presence.SetOffline(res.UserId) {
			s.stats.Decr(MetricOnlineUsers)
			s.log.Debug().Str("user", res.UserId).Msg("user offline")
			s.broadcastStatus(ctx, res.UserId, types.StatusOffline)
		}
		s.presenceMu.Unlock()
	}

	return nil
}

// Dispatch validates, translates, persists, and broadcasts a message.
func (s *Server) Dispatch(ctx context.Context, roomId, senderId, content string, source types.Language) (DispatchResult, error) {
	res, err := s.dispatcher.Dispatch(ctx, roomId, senderId, content, source)
	if err != nil {
		return res, err
	}

	s.stats.Incr(MetricMessagesDispatched)
	return res, nil
}

// MarkRead records a read mark and rebroadcasts it to the room. Repeated
// marks for the same (message, user) pair are no-ops.
func (s *Server) MarkRead(ctx context.Context, messageId, userId, roomId string) error {
	broadcast, err := s.receipts.MarkRead(ctx, messageId, userId, roomId)
	if err != nil {
		return err
	}

	if broadcast {
		s.stats.Incr(MetricReadReceipts)
	}
	return nil
}

// Presence returns a user's current derived presence.
func (s *Server) Presence(userId string) types.UserPresence {
	return s.presence.Snapshot(userId)
}

// broadcastStatus notifies every room the user is a durable member of.
// Membership comes from the store, not the live registry, since durable
// membership outlasts connections. Delivery is best-effort.
func (s *Server) broadcastStatus(ctx context.Context, userId string, status types.PresenceStatus) {
	rooms, err := s.membership.ListRooms(ctx, userId)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userId).Msg("list rooms for presence broadcast")
		return
	}

	ev := Event{
		Type:      EventUserStatusChanged,
		Timestamp: s.now().UTC(),
		Status:    &StatusChange{UserId: userId, Status: status},
	}

	for _, roomId := range rooms {
		s.deliver(roomId, ev, "")
	}
}

// deliver broadcasts through the multiplexer and disconnects any
// connection whose outbox overflowed.
func (s *Server) deliver(roomId string, ev Event, skipConnId string) {
	overflowed := s.mux.Broadcast(roomId, ev, skipConnId)
	for _, connId := range overflowed {
		s.stats.Incr(MetricDroppedConnections)
		s.log.Warn().
			Str("conn", connId).
			Str("room", roomId).
			Str("event", string(ev.Type)).
			Msg("outbox overflow, dropping connection")
		pruned := s.mux.RemoveConnection(connId)
		for i := 0; i < pruned; i++ {
			s.stats.Decr(MetricActiveRooms)
		}
	}
}
