package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcmeta "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// SubmitResult is the decoded SubmitIntent response.
type SubmitResult struct {
	Version   int64
	ActionID  int64
	Applied   bool
	Duplicate bool
	State     *state.GameState
}

// Client calls a remote GameService.
type Client struct {
	conn   grpc.ClientConnInterface
	token  string
	locale string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends token as a bearer credential on every call.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithLocale asks the server for messages in locale.
func WithLocale(locale string) ClientOption {
	return func(c *Client) { c.locale = strings.TrimSpace(locale) }
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	var pairs []string
	if c.token != "" {
		pairs = append(pairs, grpcmeta.AuthorizationHeader, "Bearer "+c.token)
	}
	if c.locale != "" {
		pairs = append(pairs, grpcmeta.LocaleHeader, c.locale)
	}
	if len(pairs) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

// SubmitIntent sends in for roomID.
func (c *Client) SubmitIntent(ctx context.Context, roomID string, in intent.Intent) (SubmitResult, error) {
	req, err := toStruct(submitRequest{RoomID: roomID, Intent: in})
	if err != nil {
		return SubmitResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), submitIntentMethod, req, out); err != nil {
		return SubmitResult{}, err
	}
	var resp submitResponse
	if err := fromStruct(out, &resp); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		Version:   resp.Version,
		ActionID:  resp.ActionID,
		Applied:   resp.Applied,
		Duplicate: resp.Duplicate,
		State:     resp.State,
	}, nil
}

// GetState fetches the current snapshot of roomID.
func (c *Client) GetState(ctx context.Context, roomID string) (*state.GameState, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), getStateMethod, wrapperspb.String(roomID), out); err != nil {
		return nil, err
	}
	var current state.GameState
	if err := fromStruct(out, &current); err != nil {
		return nil, err
	}
	return &current, nil
}

// WatchState calls fn with every snapshot pushed for roomID until ctx ends,
// the stream fails, or fn returns an error.
func (c *Client) WatchState(ctx context.Context, roomID string, fn func(*state.GameState) error) error {
	stream, err := c.conn.NewStream(c.outgoing(ctx), &serviceDesc.Streams[0], watchStateMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(wrapperspb.String(roomID)); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var next state.GameState
		if err := fromStruct(msg, &next); err != nil {
			return fmt.Errorf("decode pushed state: %w", err)
		}
		if err := fn(&next); err != nil {
			return err
		}
	}
}
