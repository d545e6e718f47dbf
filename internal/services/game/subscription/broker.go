// Package subscription pushes the latest room snapshot to watchers.
//
// Each subscriber owns a one-slot mailbox. Publishing replaces whatever is
// waiting there, so a slow reader sees fewer snapshots but never a stale or
// regressed one, and Publish never blocks the commit path.
package subscription

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Loader reads the current snapshot for a room.
type Loader func(ctx context.Context, roomID string) (*state.GameState, error)

// Broker fans committed snapshots out to room subscribers.
type Broker struct {
	load Loader

	mu    sync.Mutex
	rooms map[string]map[*Subscription]struct{}
}

// NewBroker creates a broker that reads initial snapshots through load.
func NewBroker(load Loader) *Broker {
	return &Broker{
		load:  load,
		rooms: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives snapshots for one room until closed.
type Subscription struct {
	roomID  string
	broker  *Broker
	updates chan *state.GameState

	mu          sync.Mutex
	lastVersion int64
	offered     bool
	closed      bool
	stop        func() bool
}

// Subscribe registers a watcher for roomID. The current snapshot is queued
// immediately; later commits replace it. The subscription closes when ctx
// ends or Close is called.
func (b *Broker) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	sub := &Subscription{
		roomID:  roomID,
		broker:  b,
		updates: make(chan *state.GameState, 1),
	}

	// Register before loading so a commit racing the load is not lost.
	b.mu.Lock()
	subs := b.rooms[roomID]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		b.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	current, err := b.load(ctx, roomID)
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.offer(current.Clone())
	sub.mu.Lock()
	sub.stop = context.AfterFunc(ctx, sub.Close)
	sub.mu.Unlock()
	return sub, nil
}

// Publish queues s for every subscriber of roomID. It has the shape of a
// storage.CommitObserver.
func (b *Broker) Publish(roomID string, s *state.GameState) {
	if s == nil {
		return
	}
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.rooms[roomID]))
	for sub := range b.rooms[roomID] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.offer(s.Clone())
	}
}

// Subscribers returns how many watchers roomID has.
func (b *Broker) Subscribers(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms[roomID])
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	var subs []*Subscription
	for _, room := range b.rooms {
		for sub := range room {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.rooms[sub.roomID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.rooms, sub.roomID)
	}
}

// RoomID returns the watched room.
func (s *Subscription) RoomID() string { return s.roomID }

// Updates yields snapshots with strictly increasing versions. It is closed
// when the subscription ends.
func (s *Subscription) Updates() <-chan *state.GameState { return s.updates }

// Close stops delivery and closes Updates. It is safe to call repeatedly.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.updates)
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.broker.remove(s)
}

// offer replaces any undelivered snapshot with next unless next is not newer
// than what was already offered.
func (s *Subscription) offer(next *state.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.offered && next.Version <= s.lastVersion) {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- next
	s.lastVersion = next.Version
	s.offered = true
}
