// Package server composes the game service: it opens the room store, wires
// the apply pipeline and subscription broker, and serves the HTTP request
// channel and the gRPC GameService side by side.
package server
