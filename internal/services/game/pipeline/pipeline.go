// Package pipeline applies intents to rooms transactionally.
//
// One Apply call reads the snapshot, runs the reducer, and commits the new
// snapshot together with its log entry. Losing an optimistic version race
// re-runs the whole attempt from the read, with a fresh seed, up to a bounded
// number of tries. Nothing outside the store is touched, so retries are safe.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/platform/otel"
	"github.com/louisbranch/cryptopoly/internal/random"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/reducer"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
)

const (
	// DefaultMaxAttempts bounds optimistic retries per Apply call.
	DefaultMaxAttempts = 5

	retryInitialInterval = 10 * time.Millisecond
	retryMaxInterval     = 200 * time.Millisecond
)

// Store is the persistence the pipeline needs.
type Store interface {
	storage.StateStore
	storage.LogStore
}

// Signer stamps a signature on a log entry before it is committed.
type Signer interface {
	SignEntry(entry *journal.Entry) error
}

// Outcome describes a successful Apply.
type Outcome struct {
	// State is the authoritative snapshot after the call.
	State *state.GameState
	// Entry is the log entry recorded for the intent; nil for no-ops.
	Entry *journal.Entry
	// Applied is true when this call committed a new entry.
	Applied bool
	// Duplicate is true when the intent id was already in the log.
	Duplicate bool
	Attempts  int
}

// Pipeline applies intents against a Store.
type Pipeline struct {
	store       Store
	reducer     reducer.Reducer
	seeds       random.SeedFunc
	now         func() time.Time
	signer      Signer
	maxAttempts uint
	newBackOff  func() backoff.BackOff
	tracer      trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReducer overrides the reducer.
func WithReducer(r reducer.Reducer) Option {
	return func(p *Pipeline) { p.reducer = r }
}

// WithSeeds overrides the seed source.
func WithSeeds(seeds random.SeedFunc) Option {
	return func(p *Pipeline) {
		if seeds != nil {
			p.seeds = seeds
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSigner signs every committed entry.
func WithSigner(signer Signer) Option {
	return func(p *Pipeline) { p.signer = signer }
}

// WithMaxAttempts bounds optimistic retries.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = uint(n)
		}
	}
}

// WithBackOff overrides the delay policy between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(p *Pipeline) {
		if newBackOff != nil {
			p.newBackOff = newBackOff
		}
	}
}

// New builds a pipeline.
func New(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		reducer:     reducer.Default,
		seeds:       random.NewSeed,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  defaultBackOff,
		tracer:      otel.Tracer("github.com/louisbranch/cryptopoly/internal/services/game/pipeline"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func defaultBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval
	return policy
}

// CreateRoom stores the version-0 snapshot for roomID.
func (p *Pipeline) CreateRoom(ctx context.Context, roomID string) (*state.GameState, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, apperrors.Rule(apperrors.CodeValidation, "MissingRoomId", "room id is required")
	}
	initial := state.New(roomID)
	if err := p.store.CreateRoom(ctx, initial); err != nil {
		return nil, err
	}
	return initial, nil
}

// Apply validates in and commits its effect on roomID.
func (p *Pipeline) Apply(ctx context.Context, roomID string, in intent.Intent) (Outcome, error) {
	if strings.TrimSpace(roomID) == "" {
		return Outcome{}, apperrors.Rule(apperrors.CodeValidation, "MissingRoomId", "room id is required")
	}
	if err := in.Validate(); err != nil {
		return Outcome{}, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.Apply", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("intent.type", string(in.Type)),
	))
	defer span.End()

	attempts := 0
	op := func() (Outcome, error) {
		attempts++
		out, err := p.attempt(ctx, roomID, in)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, storage.ErrConflict) {
			return Outcome{}, err
		}
		return Outcome{}, backoff.Permanent(err)
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(p.maxAttempts),
	)
	span.SetAttributes(attribute.Int("apply.attempts", attempts))
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			log.Printf("apply %s to room %s: gave up after %d attempts", in.Type, roomID, attempts)
			err = apperrors.Wrap(apperrors.CodeConcurrencyConflict,
				fmt.Sprintf("room %s kept changing; gave up after %d attempts", roomID, attempts), err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		return Outcome{}, err
	}
	out.Attempts = attempts
	span.SetAttributes(attribute.Bool("apply.committed", out.Applied))
	return out, nil
}

// attempt is one read-reduce-commit pass. It returns storage.ErrConflict
// when the snapshot moved underneath it.
func (p *Pipeline) attempt(ctx context.Context, roomID string, in intent.Intent) (Outcome, error) {
	if in.ID != "" {
		out, found, err := p.lookupDuplicate(ctx, roomID, in)
		if err != nil || found {
			return out, err
		}
	}

	current, err := p.load(ctx, roomID)
	if err != nil {
		return Outcome{}, err
	}
	if err := current.VerifyHash(); err != nil {
		log.Printf("room %s snapshot v%d failed verification: %v", roomID, current.Version, err)
		return Outcome{}, apperrors.Wrap(apperrors.CodeIntegrityViolation,
			fmt.Sprintf("room %s snapshot does not match its hash", roomID), err)
	}
	seed, err := p.seeds()
	if err != nil {
		return Outcome{}, apperrors.Wrap(apperrors.CodeUnknown, "draw seed", err)
	}
	env := reducer.Env{
		ActionID: current.LastAppliedID + 1,
		Seed:     seed,
		Now:      p.now().UTC().UnixMilli(),
	}

	result, err := p.reducer.Apply(current, in, env)
	if err != nil {
		return Outcome{}, err
	}
	if !result.Changed {
		return Outcome{State: current}, nil
	}

	entry := journal.NewEntry(roomID, in, current, result.State, env)
	if p.signer != nil {
		if err := p.signer.SignEntry(&entry); err != nil {
			return Outcome{}, apperrors.Wrap(apperrors.CodeUnknown, "sign log entry", err)
		}
	}
	if err := p.store.Commit(ctx, storage.Commit{
		RoomID:          roomID,
		ExpectedVersion: current.Version,
		State:           result.State,
		Entry:           entry,
	}); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: result.State, Entry: &entry, Applied: true}, nil
}

// lookupDuplicate reports whether in.ID is already recorded for the room.
func (p *Pipeline) lookupDuplicate(ctx context.Context, roomID string, in intent.Intent) (Outcome, bool, error) {
	entry, err := p.store.GetEntryByIntentID(ctx, roomID, in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	if entry.Intent.PlayerID != in.PlayerID || entry.Intent.Type != in.Type || !samePayload(entry.Intent.Payload, in.Payload) {
		return Outcome{}, false, apperrors.Rule(apperrors.CodeValidation, "IntentIdReused",
			fmt.Sprintf("intent id %s was already used for a different intent", in.ID))
	}
	current, err := p.store.GetState(ctx, roomID)
	if err != nil {
		return Outcome{}, false, err
	}
	return Outcome{State: current, Entry: &entry, Duplicate: true}, true, nil
}

// load reads the room snapshot, creating the default state if absent.
func (p *Pipeline) load(ctx context.Context, roomID string) (*state.GameState, error) {
	current, err := p.store.GetState(ctx, roomID)
	if !errors.Is(err, storage.ErrNotFound) {
		return current, err
	}
	if err := p.store.CreateRoom(ctx, state.New(roomID)); err != nil && !errors.Is(err, storage.ErrRoomExists) {
		return nil, err
	}
	return p.store.GetState(ctx, roomID)
}

// samePayload compares two JSON payloads by value, treating an absent
// payload and null as equal.
func samePayload(a, b json.RawMessage) bool {
	a, b = normalizePayload(a), normalizePayload(b)
	if bytes.Equal(a, b) {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func normalizePayload(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return bytes.TrimSpace(raw)
	}
	if buf.Len() == 0 || bytes.Equal(buf.Bytes(), []byte("null")) {
		return nil
	}
	return buf.Bytes()
}
