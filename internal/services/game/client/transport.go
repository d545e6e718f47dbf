package client

import (
	"context"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/game"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Transport is what a Session needs from a server connection.
type Transport interface {
	Submit(ctx context.Context, roomID string, in intent.Intent) (SubmitResult, error)
	Watch(ctx context.Context, roomID string, fn func(*state.GameState) error) error
}

var (
	_ Transport = (*HTTP)(nil)
	_ Transport = grpcTransport{}
)

// GRPC adapts a GameService client to Transport. Status errors are turned
// back into domain errors so callers can inspect codes and reasons.
func GRPC(c *game.Client) Transport {
	return grpcTransport{client: c}
}

type grpcTransport struct {
	client *game.Client
}

func (t grpcTransport) Submit(ctx context.Context, roomID string, in intent.Intent) (SubmitResult, error) {
	res, err := t.client.SubmitIntent(ctx, roomID, in)
	if err != nil {
		return SubmitResult{}, apperrors.FromGRPCStatus(err)
	}
	return SubmitResult{
		Version:   res.Version,
		ActionID:  res.ActionID,
		Applied:   res.Applied,
		Duplicate: res.Duplicate,
		State:     res.State,
	}, nil
}

func (t grpcTransport) Watch(ctx context.Context, roomID string, fn func(*state.GameState) error) error {
	err := t.client.WatchState(ctx, roomID, fn)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return apperrors.FromGRPCStatus(err)
}
