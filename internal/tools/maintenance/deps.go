package maintenance

import (
	"context"

	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
)

// roomSource is the read side of the room store that checks need.
type roomSource interface {
	storage.StateStore
	storage.LogStore
	ListRoomIDs(ctx context.Context) ([]string, error)
}

// closableRoomSource extends roomSource with a Close method for resource cleanup.
type closableRoomSource interface {
	roomSource
	Close() error
}
