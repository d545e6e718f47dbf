package client

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/platform/id"
	"github.com/louisbranch/cryptopoly/internal/services/game/client/reconcile"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// DefaultPendingTimeout bounds how long a prediction may stay unresolved.
const DefaultPendingTimeout = 5 * time.Second

// Session plays as one player in one room: it submits intents with
// optimistic predictions and folds pushed snapshots back in.
type Session struct {
	transport      Transport
	roomID         string
	playerID       string
	manager        *reconcile.Manager
	newID          func() (string, error)
	now            func() time.Time
	pendingTimeout time.Duration
	newBackOff     func() backoff.BackOff

	mu       sync.Mutex
	onChange func(*state.GameState)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPendingTimeout sets how long predictions may stay unresolved.
func WithPendingTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.pendingTimeout = d
		}
	}
}

// WithIntentIDs overrides intent id generation.
func WithIntentIDs(newID func() (string, error)) SessionOption {
	return func(s *Session) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithSessionClock overrides the wall clock used for intent timestamps.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReconnectBackOff overrides the delay policy between watch reconnects.
func WithReconnectBackOff(newBackOff func() backoff.BackOff) SessionOption {
	return func(s *Session) {
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

// WithOnChange registers fn to receive the display state after every change.
func WithOnChange(fn func(*state.GameState)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// NewSession creates a session for playerID in roomID.
func NewSession(t Transport, roomID, playerID string, opts ...SessionOption) *Session {
	s := &Session{
		transport:      t,
		roomID:         strings.TrimSpace(roomID),
		playerID:       strings.TrimSpace(playerID),
		newID:          id.NewID,
		now:            time.Now,
		pendingTimeout: DefaultPendingTimeout,
		newBackOff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 200 * time.Millisecond
			policy.MaxInterval = 5 * time.Second
			return policy
		},
	}
	s.manager = reconcile.NewManager(reconcile.WithClock(func() time.Time { return s.now() }))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Display returns the state the player should see right now.
func (s *Session) Display() *state.GameState {
	return s.manager.GetCurrentDisplayState()
}

// Manager exposes the underlying reconciliation manager.
func (s *Session) Manager() *reconcile.Manager {
	return s.manager
}

// Do submits an intent of type t with payload, predicting its effect until
// the server confirms it. A terminal rejection drops the prediction at once;
// a transient failure leaves it to expire.
func (s *Session) Do(ctx context.Context, t intent.Type, payload any) (SubmitResult, error) {
	in, err := intent.New(t, s.playerID, payload, s.now().UnixMilli())
	if err != nil {
		return SubmitResult{}, err
	}
	intentID, err := s.newID()
	if err != nil {
		return SubmitResult{}, err
	}
	in.ID = intentID

	s.manager.AddPendingIntent(intentID, in, reconcile.Predict(in))
	s.changed()

	res, err := s.transport.Submit(ctx, s.roomID, in)
	if err != nil {
		if !apperrors.CodeOf(err).Transient() {
			s.manager.Discard(intentID)
			s.changed()
		}
		return SubmitResult{}, err
	}
	// A no-op commits nothing, so no version will ever resolve it. A
	// committed intent that comes back with its snapshot is already in that
	// snapshot; keeping the prediction would replay it on top when no
	// earlier state was known to base it on.
	if !res.Applied || res.State != nil {
		s.manager.Discard(intentID)
	}
	if res.State != nil {
		s.manager.Reconcile(res.State)
	}
	s.changed()
	return res, nil
}

// Run follows the room's snapshots and expires stale predictions until ctx
// ends. Dropped subscriptions are reopened with backoff; a missing room
// ends Run with an error.
func (s *Session) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.follow(ctx) })
	group.Go(func() error {
		ticker := time.NewTicker(s.pendingTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if s.manager.CleanupOldIntents(s.pendingTimeout) > 0 {
					s.changed()
				}
			}
		}
	})
	return group.Wait()
}

func (s *Session) follow(ctx context.Context) error {
	policy := s.newBackOff()
	for {
		err := s.transport.Watch(ctx, s.roomID, func(next *state.GameState) error {
			policy.Reset()
			if s.manager.Reconcile(next) {
				s.changed()
			}
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !apperrors.CodeOf(err).Transient() {
			return err
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return errors.Join(errors.New("gave up reconnecting"), err)
		}
		log.Printf("watch %s: reconnecting in %s: %v", s.roomID, delay, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn == nil {
		return
	}
	if display := s.manager.GetCurrentDisplayState(); display != nil {
		fn(display)
	}
}
