package session

import (
	"sync"
	"time"

	"github.com/babelchat/server/internal/types"
)

// PresenceTracker derives each user's online/offline status from the
// registry's live-connection signal. Entries live for the process lifetime
// so last-seen timestamps survive reconnects.
type PresenceTracker struct {
	mu    sync.Mutex
	users map[string]*types.UserPresence
	now   func() time.Time
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		users: make(map[string]*types.UserPresence),
		now:   time.Now,
	}
}

// SetOnline transitions the user to online. It reports whether the status
// actually changed.
func (p *PresenceTracker) SetOnline(userId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userId]
	if !ok {
		p.users[userId] = &types.UserPresence{
			UserId: userId,
			Status: types.StatusOnline,
		}
		return true
	}

	if entry.Status == types.StatusOnline {
		return false
	}

	entry.Status = types.StatusOnline
	return true
}

// SetOffline transitions the user to offline and stamps last-seen. It
// reports whether the status actually changed.
func (p *PresenceTracker) SetOffline(userId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userId]
	if !ok || entry.Status == types.StatusOffline {
		return false
	}

	entry.Status = types.StatusOffline
	entry.LastSeen = p.now().UTC()
	return true
}

// Snapshot returns the user's current presence. Unknown users are reported
// as offline with a zero last-seen.
func (p *PresenceTracker) Snapshot(userId string) types.UserPresence {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.users[userId]; ok {
		return *entry
	}

	return types.UserPresence{
		UserId: userId,
		Status: types.StatusOffline,
	}
}
