// Package storage defines persistence interfaces for the game service.
//
// A room is a snapshot document plus an append-only log keyed by action id.
// Implementations (in-memory and SQLite) live in subpackages and must commit
// the snapshot replacement and the log append atomically.
//
// Common error types:
//   - ErrNotFound: requested room or entry is missing
//   - ErrConflict: the snapshot version moved since it was read
//   - ErrRoomExists: a room with that id was already created
package storage
