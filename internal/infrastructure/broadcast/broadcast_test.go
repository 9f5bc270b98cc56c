package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, event domain.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub_DeliversMessageToSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	waitFor(t, func() bool { return hub.Len() == 2 })

	if err := hub.Broadcast(context.Background(), domain.NewChangeEvent(domain.ChangeCreated)); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		typ, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if typ != websocket.TextMessage || string(data) != "New coordinates added" {
			t.Fatalf("unexpected frame %d %q", typ, data)
		}
	}
}

func TestHub_ForgetsClosedSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Len() == 1 })

	_ = conn.Close()
	waitFor(t, func() bool { return hub.Len() == 0 })

	if err := hub.Broadcast(context.Background(), domain.NewChangeEvent(domain.ChangeDeleted)); err != nil {
		t.Fatalf("Broadcast with no subscribers: %v", err)
	}
}

func TestRelay_ForwardsDecodedEvents(t *testing.T) {
	target := &recordingBroadcaster{}

	relay(context.Background(), []byte(`{"kind":"deleted","message":"Coordinates deleted"}`), target, zerolog.Nop())
	relay(context.Background(), []byte(`not json`), target, zerolog.Nop())

	if target.count() != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", target.count())
	}
	got := target.events[0]
	if got.Kind != domain.ChangeDeleted || got.Message != "Coordinates deleted" {
		t.Fatalf("unexpected event %+v", got)
	}
}
