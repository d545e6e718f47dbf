package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
)

// Commit replaces the room snapshot and appends its log entry atomically.
func (s *Store) Commit(ctx context.Context, c storage.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if c.State == nil {
		return fmt.Errorf("commit state is required")
	}

	statePayload, err := json.Marshal(c.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	intentPayload, err := json.Marshal(c.Entry.Intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return s.commitError("begin tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE room_state
SET version = ?, last_applied_id = ?, state_hash = ?, state_json = ?, updated_at = ?
WHERE room_id = ? AND version = ?`,
		c.State.Version, c.State.LastAppliedID, c.State.Hash, statePayload, toMillis(s.now()),
		c.RoomID, c.ExpectedVersion,
	)
	if err != nil {
		return s.commitError("update state", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return s.commitError("update state", err)
	}
	if affected == 0 {
		return storage.ErrConflict
	}

	entry := c.Entry
	if _, err := tx.ExecContext(ctx, `
INSERT INTO room_log (
    room_id, action_id, intent_id, intent_type, player_id, intent_json,
    prev_hash, next_hash, seed, timestamp, signature, signature_key_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RoomID, entry.ActionID, nullString(entry.IntentID), string(entry.Intent.Type), entry.Intent.PlayerID, intentPayload,
		entry.PrevHash, entry.NextHash, entry.Seed, entry.Timestamp, entry.Signature, entry.SignatureKeyID,
	); err != nil {
		return s.commitError("append log", err)
	}

	if err := tx.Commit(); err != nil {
		return s.commitError("commit", err)
	}
	s.Notify(c.RoomID, c.State)
	return nil
}

// commitError maps lost races to ErrConflict so the pipeline retries. A
// locked database is an infrastructure failure, not a lost race.
func (s *Store) commitError(op string, err error) error {
	if isSQLiteBusyError(err) {
		return unavailable(op+": database is locked", err)
	}
	if isConstraintError(err) {
		return storage.ErrConflict
	}
	return unavailable(op, err)
}

const logColumns = `room_id, action_id, COALESCE(intent_id, ''), intent_json, prev_hash, next_hash, seed, timestamp, signature, signature_key_id`

// ListEntries returns log entries after afterActionID in ascending order.
func (s *Store) ListEntries(ctx context.Context, roomID string, afterActionID int64, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+logColumns+" FROM room_log WHERE room_id = ? AND action_id > ? ORDER BY action_id LIMIT ?",
		roomID, afterActionID, limit,
	)
	if err != nil {
		return nil, unavailable("list log", err)
	}
	defer rows.Close()

	entries := make([]journal.Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list log", err)
	}
	return entries, nil
}

// GetEntryByIntentID returns the entry recorded for an idempotency key.
func (s *Store) GetEntryByIntentID(ctx context.Context, roomID, intentID string) (journal.Entry, error) {
	if intentID == "" {
		return journal.Entry{}, storage.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM room_log WHERE room_id = ? AND intent_id = ?",
		roomID, intentID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, storage.ErrNotFound
	}
	return entry, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (journal.Entry, error) {
	var (
		entry         journal.Entry
		intentPayload []byte
	)
	if err := row.Scan(
		&entry.RoomID, &entry.ActionID, &entry.IntentID, &intentPayload,
		&entry.PrevHash, &entry.NextHash, &entry.Seed, &entry.Timestamp,
		&entry.Signature, &entry.SignatureKeyID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Entry{}, err
		}
		return journal.Entry{}, fmt.Errorf("scan log entry: %w", err)
	}
	if err := json.Unmarshal(intentPayload, &entry.Intent); err != nil {
		return journal.Entry{}, fmt.Errorf("decode intent for action %d: %w", entry.ActionID, err)
	}
	return entry, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func unavailable(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeStoreUnavailable, op, err)
}
