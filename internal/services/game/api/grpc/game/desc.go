package game

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitIntent", Handler: submitIntentHandler},
		{MethodName: "GetState", Handler: getStateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchState", Handler: watchStateHandler, ServerStreams: true},
	},
	Metadata: "cryptopoly/game/v1/game.proto",
}

func submitIntentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SubmitIntent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitIntentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).SubmitIntent(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).GetState(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func watchStateHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).WatchState(in, &grpc.GenericServerStream[wrapperspb.StringValue, structpb.Struct]{ServerStream: stream})
}
