package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

type fakeRooms map[string]*state.GameState

func (f fakeRooms) load(_ context.Context, roomID string) (*state.GameState, error) {
	s, ok := f[roomID]
	if !ok {
		return nil, errors.New("no such room")
	}
	return s, nil
}

func versioned(roomID string, version int64) *state.GameState {
	s := state.New(roomID)
	s.Version = version
	s.LastAppliedID = version
	return s
}

func receive(t *testing.T, sub *Subscription) *state.GameState {
	t.Helper()
	select {
	case s, ok := <-sub.Updates():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return nil
}

func expectEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case s := <-sub.Updates():
		t.Fatalf("expected no pending update, got version %d", s.Version)
	default:
	}
}

// TestSubscribeDeliversCurrentStateOnce ensures a new watcher gets the full
// snapshot immediately and nothing else until a commit.
func TestSubscribeDeliversCurrentStateOnce(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 3)}.load)
	sub, err := broker.Subscribe(context.Background(), "room")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if got := receive(t, sub); got.Version != 3 {
		t.Fatalf("expected version 3, got %d", got.Version)
	}
	expectEmpty(t, sub)
}

func TestSubscribeUnknownRoomFails(t *testing.T) {
	broker := NewBroker(fakeRooms{}.load)
	if _, err := broker.Subscribe(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error")
	}
	if n := broker.Subscribers("ghost"); n != 0 {
		t.Fatalf("expected failed subscribe to unregister, got %d", n)
	}
	if _, err := broker.Subscribe(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty room id")
	}
}

// TestPublishCoalescesToLatest ensures a slow reader only sees the newest snapshot.
func TestPublishCoalescesToLatest(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 0)}.load)
	sub, err := broker.Subscribe(context.Background(), "room")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	for v := int64(1); v <= 50; v++ {
		broker.Publish("room", versioned("room", v))
	}
	if got := receive(t, sub); got.Version != 50 {
		t.Fatalf("expected latest version 50, got %d", got.Version)
	}
	expectEmpty(t, sub)
}

func TestPublishNeverRegresses(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 0)}.load)
	sub, err := broker.Subscribe(context.Background(), "room")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	receive(t, sub)

	broker.Publish("room", versioned("room", 4))
	broker.Publish("room", versioned("room", 2))
	broker.Publish("room", versioned("room", 4))
	if got := receive(t, sub); got.Version != 4 {
		t.Fatalf("expected version 4, got %d", got.Version)
	}
	expectEmpty(t, sub)
}

func TestPublishIsScopedToRoom(t *testing.T) {
	broker := NewBroker(fakeRooms{"a": versioned("a", 0), "b": versioned("b", 0)}.load)
	subA, _ := broker.Subscribe(context.Background(), "a")
	subB, _ := broker.Subscribe(context.Background(), "b")
	defer subA.Close()
	defer subB.Close()
	receive(t, subA)
	receive(t, subB)

	broker.Publish("a", versioned("a", 1))
	if got := receive(t, subA); got.RoomID != "a" {
		t.Fatalf("unexpected room %s", got.RoomID)
	}
	expectEmpty(t, subB)
}

func TestSubscribersGetPrivateCopies(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 0)}.load)
	one, _ := broker.Subscribe(context.Background(), "room")
	two, _ := broker.Subscribe(context.Background(), "room")
	defer one.Close()
	defer two.Close()
	receive(t, one)
	receive(t, two)

	broker.Publish("room", versioned("room", 1))
	a := receive(t, one)
	b := receive(t, two)
	a.Players = append(a.Players, state.Player{UserID: "intruder"})
	if len(b.Players) != 0 {
		t.Fatal("subscribers share snapshot memory")
	}
}

// TestContextCancelClosesSubscription ensures watchers are released with their context.
func TestContextCancelClosesSubscription(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 0)}.load)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := broker.Subscribe(ctx, "room")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	receive(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Updates():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if n := broker.Subscribers("room"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	broker.Publish("room", versioned("room", 1))
	sub.Close()
}

// TestResubscribeDeliversFullStateAgain models a client reconnecting.
func TestResubscribeDeliversFullStateAgain(t *testing.T) {
	rooms := fakeRooms{"room": versioned("room", 1)}
	broker := NewBroker(rooms.load)
	first, _ := broker.Subscribe(context.Background(), "room")
	receive(t, first)
	first.Close()

	rooms["room"] = versioned("room", 7)
	second, err := broker.Subscribe(context.Background(), "room")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	defer second.Close()
	if got := receive(t, second); got.Version != 7 {
		t.Fatalf("expected version 7, got %d", got.Version)
	}
	expectEmpty(t, second)
}

func TestBrokerCloseEndsAllSubscriptions(t *testing.T) {
	broker := NewBroker(fakeRooms{"room": versioned("room", 0)}.load)
	sub, _ := broker.Subscribe(context.Background(), "room")
	broker.Close()
	receive(t, sub)
	if _, ok := <-sub.Updates(); ok {
		t.Fatal("expected closed channel")
	}
}
