package session

import "sync"

// Multiplexer routes events to the live subscriber set of each room.
// Room entries are created lazily on first subscribe and pruned when their
// subscriber set empties. Delivery to each connection is independent: a
// stalled outbox drops out without delaying the rest of the room.
type Multiplexer struct {
	mu         sync.RWMutex
	conns      map[string]*Outbox
	rooms      map[string]*roomSubs
	outboxSize int
}

// roomSubs carries its own lock so broadcasts to the same room are
// mutually ordered without serializing the whole multiplexer.
type roomSubs struct {
	mu   sync.Mutex
	subs map[string]*Outbox
}

func NewMultiplexer(outboxSize int) *Multiplexer {
	return &Multiplexer{
		conns:      make(map[string]*Outbox),
		rooms:      make(map[string]*roomSubs),
		outboxSize: outboxSize,
	}
}

// AddConnection creates the connection's outbox. The transport drains it
// until Done is closed.
func (m *Multiplexer) AddConnection(connId string) *Outbox {
	m.mu.Lock()
	defer m.mu.Unlock()

	ob := newOutbox(m.outboxSize)
	m.conns[connId] = ob
	return ob
}

// RemoveConnection closes the connection's outbox and drops it from every
// room, returning the number of rooms pruned. A broadcast running
// concurrently simply no longer sees the connection.
func (m *Multiplexer) RemoveConnection(connId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ob, ok := m.conns[connId]
	if !ok {
		return 0
	}
	ob.close()
	delete(m.conns, connId)

	var pruned int
	for roomId, room := range m.rooms {
		room.mu.Lock()
		delete(room.subs, connId)
		empty := len(room.subs) == 0
		room.mu.Unlock()
		if empty {
			delete(m.rooms, roomId)
			pruned++
		}
	}

	return pruned
}

// Subscribe adds the connection to the room's subscriber set. It reports
// whether the set changed and whether the room entry was created;
// re-subscribing is a no-op.
func (m *Multiplexer) Subscribe(roomId, connId string) (added, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ob, ok := m.conns[connId]
	if !ok {
		return false, false
	}

	room, ok := m.rooms[roomId]
	if !ok {
		room = &roomSubs{subs: make(map[string]*Outbox)}
		m.rooms[roomId] = room
		created = true
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, subscribed := room.subs[connId]; subscribed {
		return false, created
	}
	room.subs[connId] = ob
	return true, created
}

// Unsubscribe removes the connection from the room's subscriber set,
// pruning the room when it empties. Reports whether the set changed and
// whether the room entry was pruned.
func (m *Multiplexer) Unsubscribe(roomId, connId string) (removed, pruned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return false, false
	}

	room.mu.Lock()
	_, subscribed := room.subs[connId]
	delete(room.subs, connId)
	empty := len(room.subs) == 0
	room.mu.Unlock()

	if empty {
		delete(m.rooms, roomId)
	}

	return subscribed, empty
}

// Subscribers returns a snapshot of the room's live subscriber ids.
func (m *Multiplexer) Subscribers(roomId string) []string {
	m.mu.RLock()
	room, ok := m.rooms[roomId]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	ids := make([]string, 0, len(room.subs))
	for connId := range room.subs {
		ids = append(ids, connId)
	}
	return ids
}

// RoomCount reports the number of rooms with at least one live subscriber.
func (m *Multiplexer) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms)
}

// Broadcast delivers ev to every subscriber of the room except skipConnId.
// Sends never block: a subscriber whose outbox is full has the event
// dropped and its outbox closed. The room lock is held across the enqueue
// loop, so two broadcasts to the same room are observed by all recipients
// in the same order. Returns the overflowed connection ids.
func (m *Multiplexer) Broadcast(roomId string, ev Event, skipConnId string) []string {
	m.mu.RLock()
	room, ok := m.rooms[roomId]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	var overflowed []string
	for connId, ob := range room.subs {
		if connId == skipConnId {
			continue
		}
		if !ob.offer(ev) {
			overflowed = append(overflowed, connId)
		}
	}

	return overflowed
}
