package session

import (
	"sync"

	"github.com/teris-io/shortid"
)

// connection is the registry's record of one live transport session.
type connection struct {
	id     string
	userId string
	rooms  map[string]struct{}
}

// Registry owns the set of live connections, the user binding of each, and
// each connection's joined-room set. It also maintains the reverse
// UserId -> ConnectionIds index so disconnects never scan the full table.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*connection
	userConns map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*connection),
		userConns: make(map[string]map[string]struct{}),
	}
}

// Register creates a connection entry and returns its opaque id.
func (r *Registry) Register() (string, error) {
	id, err := shortid.Generate()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = &connection{
		id:    id,
		rooms: make(map[string]struct{}),
	}

	return id, nil
}

// Announce binds a user identity to the connection. The first return value
// reports whether this is the user's first live connection. Announcing the
// same user again is a no-op; announcing a different user fails with
// ErrAlreadyAnnounced.
func (r *Registry) Announce(connId, userId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return false, ErrUnknownConnection
	}

	if conn.userId != "" {
		if conn.userId != userId {
			return false, ErrAlreadyAnnounced
		}
		return false, nil
	}

	conn.userId = userId
	first := len(r.userConns[userId]) == 0
	if r.userConns[userId] == nil {
		r.userConns[userId] = make(map[string]struct{})
	}
	r.userConns[userId][connId] = struct{}{}

	return first, nil
}

// Join adds roomId to the connection's room set. It reports whether the
// set changed; joining a room twice is a no-op.
func (r *Registry) Join(connId, roomId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return false, ErrUnknownConnection
	}

	if _, joined := conn.rooms[roomId]; joined {
		return false, nil
	}

	conn.rooms[roomId] = struct{}{}
	return true, nil
}

// Leave removes roomId from the connection's room set. Leaving a room the
// connection is not in is a no-op.
func (r *Registry) Leave(connId, roomId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return false, ErrUnknownConnection
	}

	if _, joined := conn.rooms[roomId]; !joined {
		return false, nil
	}

	delete(conn.rooms, roomId)
	return true, nil
}

// UserOf returns the user bound to the connection, if any.
func (r *Registry) UserOf(connId string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return "", ErrUnknownConnection
	}

	return conn.userId, nil
}

// Rooms returns a snapshot of the connection's joined rooms.
func (r *Registry) Rooms(connId string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return nil, ErrUnknownConnection
	}

	rooms := make([]string, 0, len(conn.rooms))
	for roomId := range conn.rooms {
		rooms = append(rooms, roomId)
	}

	return rooms, nil
}

// UnregisterResult describes the state removed by Unregister.
type UnregisterResult struct {
	// Rooms the connection was joined to at removal time.
	Rooms []string
	// UserId bound to the connection, empty if it never announced.
	UserId string
	// LastForUser is true when the bound user has no remaining live
	// connections, the signal for the presence tracker.
	LastForUser bool
}

// Unregister removes the connection and all its room memberships
// atomically. Unregistering an unknown connection fails with
// ErrUnknownConnection.
func (r *Registry) Unregister(connId string) (UnregisterResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connId]
	if !ok {
		return UnregisterResult{}, ErrUnknownConnection
	}

	res := UnregisterResult{
		UserId: conn.userId,
		Rooms:  make([]string, 0, len(conn.rooms)),
	}
	for roomId := range conn.rooms {
		res.Rooms = append(res.Rooms, roomId)
	}

	delete(r.conns, connId)

	if conn.userId != "" {
		userConns := r.userConns[conn.userId]
		delete(userConns, connId)
		if len(userConns) == 0 {
			delete(r.userConns, conn.userId)
			res.LastForUser = true
		}
	}

	return res, nil
}

// LiveConnections reports the number of live connections for a user.
func (r *Registry) LiveConnections(userId string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.userConns[userId])
}

// Len reports the total number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.conns)
}
