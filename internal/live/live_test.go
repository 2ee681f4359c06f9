package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

type countingGauge struct {
	n atomic.Int64
}

func (g *countingGauge) SubscriberJoined() { g.n.Add(1) }
func (g *countingGauge) SubscriberLeft()   { g.n.Add(-1) }

func receive(t *testing.T, ch <-chan domain.LiveMessage) domain.LiveMessage {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return domain.LiveMessage{}
	}
}

func TestHub_RoomsAreScopedToEvents(t *testing.T) {
	gauge := &countingGauge{}
	hub := NewHub(clock.WallClock, time.Minute, gauge)

	got1 := make(chan domain.LiveMessage, 4)
	got2 := make(chan domain.LiveMessage, 4)
	unsub1 := hub.Subscribe(1, func(m domain.LiveMessage) { got1 <- m })
	unsub2 := hub.Subscribe(2, func(m domain.LiveMessage) { got2 <- m })
	assert.Equal(t, int64(2), gauge.n.Load())

	hub.Publish(domain.LiveMessage{Type: domain.LiveItemVerified, EventID: 1, NodeID: 7, Status: "OK"})

	msg := receive(t, got1)
	assert.Equal(t, uint(7), msg.NodeID)
	select {
	case m := <-got2:
		t.Fatalf("event 2 received %v", m)
	case <-time.After(100 * time.Millisecond):
	}

	unsub1()
	unsub1()
	unsub2()
	assert.Equal(t, int64(0), gauge.n.Load())
}

func TestPresence_Window(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	p := NewPresence(clk, 2*time.Minute)

	p.Touch(1, "Zoé")
	p.Touch(1, "Alex")
	p.Touch(1, "  ")
	p.Touch(2, "Sam")
	assert.Equal(t, []string{"Alex", "Zoé"}, p.Active(1))

	clk.Advance(90 * time.Second)
	p.Touch(1, "Alex")
	clk.Advance(45 * time.Second)

	assert.Equal(t, []string{"Alex"}, p.Active(1))
	assert.Empty(t, p.Active(2))
}

func TestPresence_CapsNames(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	p := NewPresence(clk, 2*time.Minute)

	p.Touch(1, strings.Repeat("é", 500))

	active := p.Active(1)
	require.Len(t, active, 1)
	assert.Equal(t, MaxNameLength, utf8.RuneCountInString(active[0]))
}

func TestHub_Serve(t *testing.T) {
	hub := NewHub(clock.WallClock, time.Minute, nil)
	served := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, 3, domain.LiveMessage{Type: domain.LiveSnapshot, EventID: 3})
		close(served)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	var msg domain.LiveMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, domain.LiveSnapshot, msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "presence", "name": "Camille"}))
	assert.Eventually(t, func() bool {
		return len(hub.Active(3)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The snapshot is only written once the subscription exists.
	hub.Publish(domain.LiveMessage{Type: domain.LiveParentLoaded, EventID: 3, NodeID: 9})
	var got domain.LiveMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, domain.LiveParentLoaded, got.Type)
	assert.Equal(t, uint(9), got.NodeID)

	require.NoError(t, conn.Close())
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the client left")
	}
}
