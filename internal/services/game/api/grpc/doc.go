// Package grpc contains the game service's gRPC surface.
//
//   - game/: GameService (submit intents, read and watch room state) and its client
//   - metadata/: request headers and correlation interceptors
//   - interceptors/: access log lines for every call
package grpc
