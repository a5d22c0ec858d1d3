package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/stats"
	"github.com/babelchat/server/internal/testutil"
	"github.com/babelchat/server/internal/translate"
)

// newTestServer creates a session server for testing purposes.
func newTestServer(t *testing.T, db *database.MockChatRepository, tr translate.Translator, su *stats.MockStatsUpdater) *Server {
	t.Helper()

	su.On("RegisterMetric", mock.Anything).Times(6)

	return NewServer(testutil.TestLogger(t), db, db, tr, su, 16)
}

// relaxedStats accepts any counter updates; scenario tests assert on
// behavior, not metric counts.
func relaxedStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Maybe()
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	return su
}

// nextEvent waits for the next event on the outbox.
func nextEvent(t *testing.T, ob *Outbox) Event {
	t.Helper()

	select {
	case ev := <-ob.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// assertNoEvent asserts the outbox stays empty.
func assertNoEvent(t *testing.T, ob *Outbox) {
	t.Helper()

	select {
	case ev := <-ob.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
