// Package api groups the request channels of the game service.
//
// Subpackages:
//   - httpapi: JSON endpoints for rooms, intents, state, the log, and the
//     server-sent event stream
//   - grpc/game: the same operations over gRPC, including a streaming subscribe
//   - grpc/metadata: request and correlation identifiers carried in gRPC metadata
//   - grpc/interceptors: access logging for unary and streaming calls
//
// Both channels submit intents through the same apply pipeline, so a
// client may mix them freely.
package api
