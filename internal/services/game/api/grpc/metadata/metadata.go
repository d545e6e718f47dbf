// Package metadata defines the request headers the game service reads from
// gRPC calls: correlation ids, locale, and player tokens.
package metadata

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/cryptopoly/internal/platform/id"
)

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-cryptopoly-request-id"

// LocaleHeader carries the caller's preferred locale as an Accept-Language value.
const LocaleHeader = "x-cryptopoly-locale"

// AuthorizationHeader carries "Bearer <player token>".
const AuthorizationHeader = "authorization"

type contextKey string

const requestIDContextKey contextKey = "cryptopoly-request-id"

// RequestIDFromContext returns the request ID stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// LocaleFromContext returns the incoming locale header, if any.
func LocaleFromContext(ctx context.Context) string {
	return valueFromIncomingContext(ctx, LocaleHeader)
}

// AuthorizationFromContext returns the incoming authorization header, if any.
func AuthorizationFromContext(ctx context.Context) string {
	return valueFromIncomingContext(ctx, AuthorizationHeader)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// UnaryServerInterceptor guarantees every unary call carries a request id and
// echoes it in the response headers.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updatedCtx, requestID, err := ensureRequestID(ctx, idGenerator)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := grpc.SetHeader(updatedCtx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(updatedCtx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(idGenerator func() (string, error)) grpc.StreamServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		updatedCtx, requestID, err := ensureRequestID(stream.Context(), idGenerator)
		if err != nil {
			return status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := stream.SetHeader(metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: updatedCtx})
	}
}

// wrappedServerStream overrides the context for a gRPC stream.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the updated stream context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func ensureRequestID(ctx context.Context, idGenerator func() (string, error)) (context.Context, string, error) {
	requestID := valueFromIncomingContext(ctx, RequestIDHeader)
	if requestID == "" {
		generated, err := idGenerator()
		if err != nil {
			return nil, "", err
		}
		requestID = generated
	}
	return WithRequestID(ctx, requestID), requestID, nil
}

func valueFromIncomingContext(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}
