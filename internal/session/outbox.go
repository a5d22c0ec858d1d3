package session

import "sync"

// Outbox is a connection's bounded event queue. The session core enqueues
// with non-blocking sends; the connection's transport drains Events. When
// the queue overflows the outbox is closed, signalling the transport to
// tear the connection down rather than letting it stall broadcasters.
type Outbox struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newOutbox(size int) *Outbox {
	return &Outbox{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Events is drained by the connection's write pump.
func (o *Outbox) Events() <-chan Event {
	return o.events
}

// Done is closed when the connection should be torn down.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

func (o *Outbox) close() {
	o.once.Do(func() {
		close(o.done)
	})
}

// offer enqueues without blocking. A full queue closes the outbox and
// reports failure; the event is dropped for this connection only.
func (o *Outbox) offer(ev Event) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	select {
	case o.events <- ev:
		return true
	default:
		o.close()
		return false
	}
}
