// Package game implements the cryptopoly.game.v1.GameService gRPC API.
//
// Messages are well-known protobuf types: requests and responses that carry
// documents use structpb.Struct holding the same JSON the HTTP channel
// serves, and room ids travel as wrapperspb.StringValue.
package game

import (
	"context"
	"errors"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/platform/timeouts"
	grpcmeta "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/cryptopoly/internal/services/game/auth"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/pipeline"
	"github.com/louisbranch/cryptopoly/internal/services/game/subscription"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cryptopoly.game.v1.GameService"

const (
	submitIntentMethod = "/" + ServiceName + "/SubmitIntent"
	getStateMethod     = "/" + ServiceName + "/GetState"
	watchStateMethod   = "/" + ServiceName + "/WatchState"
)

// Applier runs intents through the apply pipeline.
type Applier interface {
	Apply(ctx context.Context, roomID string, in intent.Intent) (pipeline.Outcome, error)
}

// Reader serves snapshot reads.
type Reader interface {
	GetState(ctx context.Context, roomID string) (*state.GameState, error)
}

// Watcher opens state subscriptions.
type Watcher interface {
	Subscribe(ctx context.Context, roomID string) (*subscription.Subscription, error)
}

// Authorizer checks that a bearer token speaks for a player in a room.
type Authorizer interface {
	Authorize(token, roomID, playerID string) error
}

// Server is the GameService handler set.
type Server interface {
	SubmitIntent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	WatchState(*wrapperspb.StringValue, grpc.ServerStreamingServer[structpb.Struct]) error
}

// Service implements Server on top of the pipeline, store and broker.
type Service struct {
	pipeline Applier
	store    Reader
	broker   Watcher
	tokens   Authorizer
}

// NewService creates a GameService. tokens may be nil.
func NewService(p Applier, store Reader, broker Watcher, tokens Authorizer) *Service {
	return &Service{pipeline: p, store: store, broker: broker, tokens: tokens}
}

// Register attaches srv to a gRPC server.
func Register(registrar grpc.ServiceRegistrar, srv Server) {
	registrar.RegisterService(&serviceDesc, srv)
}

type submitRequest struct {
	RoomID string        `json:"roomId"`
	Intent intent.Intent `json:"intent"`
}

type submitResponse struct {
	OK        bool             `json:"ok"`
	Version   int64            `json:"version"`
	ActionID  int64            `json:"actionId,omitempty"`
	Applied   bool             `json:"applied"`
	Duplicate bool             `json:"duplicate,omitempty"`
	State     *state.GameState `json:"state"`
}

// SubmitIntent applies one intent. The request holds {roomId, intent}.
func (s *Service) SubmitIntent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "submit intent request is required")
	}
	var req submitRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, toStatus(ctx, apperrors.Rule(apperrors.CodeValidation, "MalformedBody", "request must hold roomId and intent"))
	}
	roomID := strings.TrimSpace(req.RoomID)
	if err := req.Intent.Validate(); err != nil {
		return nil, toStatus(ctx, err)
	}
	if s.tokens != nil {
		token := auth.BearerToken(grpcmeta.AuthorizationFromContext(ctx))
		if err := s.tokens.Authorize(token, roomID, req.Intent.PlayerID); err != nil {
			return nil, toStatus(ctx, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.ApplyIntent)
	defer cancel()
	out, err := s.pipeline.Apply(ctx, roomID, req.Intent)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	resp := submitResponse{
		OK:        true,
		Version:   out.State.Version,
		Applied:   out.Applied,
		Duplicate: out.Duplicate,
		State:     out.State,
	}
	if out.Entry != nil {
		resp.ActionID = out.Entry.ActionID
	}
	return toStruct(resp)
}

// GetState returns the current snapshot of a room.
func (s *Service) GetState(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	roomID := strings.TrimSpace(in.GetValue())
	if roomID == "" {
		return nil, status.Error(codes.InvalidArgument, "room id is required")
	}
	current, err := s.store.GetState(ctx, roomID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return toStruct(current)
}

// WatchState streams the current snapshot and then every newer one.
func (s *Service) WatchState(in *wrapperspb.StringValue, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	roomID := strings.TrimSpace(in.GetValue())
	if roomID == "" {
		return status.Error(codes.InvalidArgument, "room id is required")
	}
	sub, err := s.broker.Subscribe(ctx, roomID)
	if err != nil {
		return toStatus(ctx, err)
	}
	defer sub.Close()

	for next := range sub.Updates() {
		msg, err := toStruct(next)
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			log.Printf("watch %s: drop subscriber at version %d: %v", roomID, next.Version, err)
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unavailable, "subscription closed")
}

// toStatus converts domain errors to gRPC status errors with localized details.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return status.FromContextError(err).Err()
	}
	e, ok := apperrors.As(err)
	if !ok {
		log.Printf("%s: %v", grpcmeta.RequestIDFromContext(ctx), err)
		return status.Error(codes.Internal, "internal error")
	}
	if e.Code.HTTPStatus() >= 500 {
		log.Printf("%s: %v", grpcmeta.RequestIDFromContext(ctx), err)
	}
	tag := apperrors.ResolveLocale(grpcmeta.LocaleFromContext(ctx))
	return e.ToGRPCStatus(tag.String(), apperrors.UserMessage(tag, err))
}
