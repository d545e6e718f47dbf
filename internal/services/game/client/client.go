// Package client talks to a game server over its HTTP request channel and
// WebSocket subscription, and pairs a transport with a reconciliation
// manager in Session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// SubmitResult is the server's answer to an accepted intent.
type SubmitResult struct {
	Version   int64 `json:"version"`
	ActionID  int64 `json:"actionId,omitempty"`
	Applied   bool  `json:"applied"`
	Duplicate bool  `json:"duplicate,omitempty"`
	// State is set by transports that return the snapshot with the answer.
	State *state.GameState `json:"-"`
}

// HTTP is a client for the HTTP request channel.
type HTTP struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	locale  string
}

// Option configures an HTTP client.
type Option func(*HTTP)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.http = c
		}
	}
}

// WithToken sends token as a bearer credential on intent submissions.
func WithToken(token string) Option {
	return func(h *HTTP) { h.token = strings.TrimSpace(token) }
}

// WithLocale sets Accept-Language on every request.
func WithLocale(locale string) Option {
	return func(h *HTTP) { h.locale = strings.TrimSpace(locale) }
}

// NewHTTP creates a client for the server at baseURL.
func NewHTTP(baseURL string, opts ...Option) (*HTTP, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	c := &HTTP{baseURL: parsed, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (c *HTTP) endpoint(path string) string {
	return c.baseURL.String() + path
}

func roomPath(roomID, suffix string) string {
	return "/games/" + url.PathEscape(roomID) + suffix
}

func (c *HTTP) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "reach game server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure errorBody
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Code == "" {
			return apperrors.New(apperrors.CodeUnknown, fmt.Sprintf("%s %s: %s", method, path, resp.Status))
		}
		return apperrors.Rule(apperrors.Code(failure.Code), failure.Reason, failure.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// CreateRoom creates a room. An empty roomID lets the server pick one.
func (c *HTTP) CreateRoom(ctx context.Context, roomID string) (string, error) {
	var resp struct {
		RoomID string `json:"roomId"`
	}
	body := map[string]string{}
	if roomID = strings.TrimSpace(roomID); roomID != "" {
		body["roomId"] = roomID
	}
	if err := c.do(ctx, http.MethodPost, "/games", body, &resp); err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

// Submit sends in to roomID.
func (c *HTTP) Submit(ctx context.Context, roomID string, in intent.Intent) (SubmitResult, error) {
	var resp SubmitResult
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "/intent"), in, &resp); err != nil {
		return SubmitResult{}, err
	}
	return resp, nil
}

// State fetches the current snapshot.
func (c *HTTP) State(ctx context.Context, roomID string) (*state.GameState, error) {
	var current state.GameState
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "/state"), nil, &current); err != nil {
		return nil, err
	}
	return &current, nil
}

// Log fetches up to limit entries after afterActionID. A zero limit takes
// the server default.
func (c *HTTP) Log(ctx context.Context, roomID string, afterActionID int64, limit int) ([]journal.Entry, error) {
	query := url.Values{}
	if afterActionID > 0 {
		query.Set("after", strconv.FormatInt(afterActionID, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := roomPath(roomID, "/log")
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var entries []journal.Entry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Watch calls fn with every snapshot pushed for roomID until ctx ends, the
// connection drops, or fn returns an error. A clean close after ctx ends
// returns nil.
func (c *HTTP) Watch(ctx context.Context, roomID string, fn func(*state.GameState) error) error {
	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += roomPath(roomID, "/subscribe")

	config, err := websocket.NewConfig(wsURL.String(), c.baseURL.String())
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		if _, statusErr := c.State(ctx, roomID); statusErr != nil {
			return statusErr
		}
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "open subscription", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var next state.GameState
		if err := websocket.JSON.Receive(conn, &next); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, "subscription dropped", err)
		}
		if err := fn(&next); err != nil {
			return err
		}
	}
}
