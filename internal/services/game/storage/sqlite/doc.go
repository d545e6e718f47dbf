// Package sqlite implements the room snapshot and action log stores on SQLite.
//
// Each room is one row in room_state holding the full snapshot JSON, and one
// row per applied intent in room_log. Commit replaces the snapshot with a
// version-guarded UPDATE and appends the log row in the same transaction, so
// a snapshot and its log entry are always written together or not at all.
package sqlite
