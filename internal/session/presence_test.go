package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/babelchat/server/internal/types"
)

func TestPresenceTransitions(t *testing.T) {
	p := NewPresenceTracker()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	assert.True(t, p.SetOnline("user-1"), "expected unknown user to transition online")
	assert.False(t, p.SetOnline("user-1"), "expected repeated online to be a no-op")

	snap := p.Snapshot("user-1")
	assert.Equal(t, types.StatusOnline, snap.Status)
	assert.True(t, snap.LastSeen.IsZero(), "expected no last-seen while online")

	assert.True(t, p.SetOffline("user-1"), "expected online user to transition offline")
	assert.False(t, p.SetOffline("user-1"), "expected repeated offline to be a no-op")

	snap = p.Snapshot("user-1")
	assert.Equal(t, types.StatusOffline, snap.Status)
	assert.Equal(t, fixed, snap.LastSeen, "expected last-seen stamped at offline transition")
}

func TestPresenceUnknownUser(t *testing.T) {
	p := NewPresenceTracker()

	assert.False(t, p.SetOffline("ghost"), "expected offline for unknown user to be a no-op")

	snap := p.Snapshot("ghost")
	assert.Equal(t, types.StatusOffline, snap.Status)
	assert.True(t, snap.LastSeen.IsZero())
}
