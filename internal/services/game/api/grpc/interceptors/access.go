// Package interceptors holds gRPC middleware for the game service.
package interceptors

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcmeta "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/metadata"
)

// Logf is the printf-style sink access lines are written to.
type Logf func(format string, args ...any)

// AccessLogUnaryInterceptor logs one line per unary call with its outcome.
func AccessLogUnaryInterceptor(logf Logf) grpc.UnaryServerInterceptor {
	if logf == nil {
		logf = log.Printf
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logf("%s", accessLine(ctx, info.FullMethod, roomFromRequest(req), err, time.Since(start)))
		return resp, err
	}
}

// AccessLogStreamInterceptor logs one line when a stream ends. The room is
// read from the first message the client sends.
func AccessLogStreamInterceptor(logf Logf) grpc.StreamServerInterceptor {
	if logf == nil {
		logf = log.Printf
	}
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		recorder := &roomRecorder{ServerStream: stream}
		err := handler(srv, recorder)
		logf("%s", accessLine(stream.Context(), info.FullMethod, recorder.roomID, err, time.Since(start)))
		return err
	}
}

type roomRecorder struct {
	grpc.ServerStream
	roomID string
}

func (r *roomRecorder) RecvMsg(m any) error {
	err := r.ServerStream.RecvMsg(m)
	if err == nil && r.roomID == "" {
		r.roomID = roomFromRequest(m)
	}
	return err
}

func accessLine(ctx context.Context, fullMethod, roomID string, err error, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("grpc ")
	b.WriteString(fullMethod)
	b.WriteString(" kind=")
	b.WriteString(methodKind(fullMethod))
	b.WriteString(" code=")
	b.WriteString(status.Code(err).String())
	b.WriteString(" elapsed=")
	b.WriteString(elapsed.Round(time.Microsecond).String())
	if roomID != "" {
		b.WriteString(" room=")
		b.WriteString(roomID)
	}
	if requestID := grpcmeta.RequestIDFromContext(ctx); requestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(requestID)
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		b.WriteString(" trace_id=")
		b.WriteString(sc.TraceID().String())
	}
	return b.String()
}

func methodKind(fullMethod string) string {
	if strings.HasSuffix(fullMethod, "/SubmitIntent") {
		return "write"
	}
	return "read"
}

func roomFromRequest(req any) string {
	switch msg := req.(type) {
	case *structpb.Struct:
		if v, ok := msg.GetFields()["roomId"]; ok {
			return strings.TrimSpace(v.GetStringValue())
		}
	case *wrapperspb.StringValue:
		return strings.TrimSpace(msg.GetValue())
	}
	return ""
}
