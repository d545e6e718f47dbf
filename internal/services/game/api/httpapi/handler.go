// Package httpapi is the game's request channel over HTTP.
//
// It is a thin boundary: it decodes intents, checks identity, calls the
// apply pipeline, and maps failures to structured JSON errors. State pushes
// are served over WebSocket from the subscription broker.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/louisbranch/cryptopoly/internal/platform/pagination"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/pipeline"
	"github.com/louisbranch/cryptopoly/internal/services/game/subscription"
)

const maxIntentBodyBytes = 64 << 10

// DefaultLogPage bounds GET /log responses.
var DefaultLogPage = pagination.PageSizeConfig{Default: 100, Max: 500}

// Applier runs intents through the apply pipeline.
type Applier interface {
	Apply(ctx context.Context, roomID string, in intent.Intent) (pipeline.Outcome, error)
	CreateRoom(ctx context.Context, roomID string) (*state.GameState, error)
}

// Reader serves snapshot and log reads.
type Reader interface {
	GetState(ctx context.Context, roomID string) (*state.GameState, error)
	ListEntries(ctx context.Context, roomID string, afterActionID int64, limit int) ([]journal.Entry, error)
}

// Watcher opens state subscriptions.
type Watcher interface {
	Subscribe(ctx context.Context, roomID string) (*subscription.Subscription, error)
}

// Authorizer checks that a bearer token speaks for a player in a room.
type Authorizer interface {
	Authorize(token, roomID, playerID string) error
}

// Config wires the handler's collaborators. Tokens is optional; without it
// intents are trusted as submitted.
type Config struct {
	Pipeline  Applier
	Store     Reader
	Broker    Watcher
	Tokens    Authorizer
	NewRoomID func() (string, error)
	LogPage   pagination.PageSizeConfig
}

type handler struct {
	cfg Config
}

// NewHandler builds the request channel routes.
func NewHandler(cfg Config) http.Handler {
	if cfg.LogPage.Default == 0 {
		cfg.LogPage = DefaultLogPage
	}
	h := &handler{cfg: cfg}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/games", h.handleCreateRoom).Methods(http.MethodPost)
	games := r.PathPrefix("/games/{roomId}").Subrouter()
	games.HandleFunc("/intent", h.handleSubmitIntent).Methods(http.MethodPost)
	games.HandleFunc("/state", h.handleGetState).Methods(http.MethodGet)
	games.HandleFunc("/log", h.handleGetLog).Methods(http.MethodGet)
	games.HandleFunc("/subscribe", h.handleSubscribe).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// writeJSON writes JSON responses with a consistent content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
