package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/cryptopoly/internal/platform/timeouts"
	"github.com/louisbranch/cryptopoly/internal/services/game/subscription"
)

// handleSubscribe upgrades to a WebSocket that streams full snapshots, the
// current one first. Clients only read; any inbound frame is ignored and a
// read error ends the stream.
func (h *handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFrom(r)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the upgrade so unknown rooms still get a plain 404.
	sub, err := h.cfg.Broker.Subscribe(ctx, roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer sub.Close()

	websocket.Handler(func(conn *websocket.Conn) {
		defer func() {
			_ = conn.Close()
		}()
		go drainInbound(conn, cancel)
		pushStates(conn, sub)
	}).ServeHTTP(w, r)
}

func drainInbound(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	var discard []byte
	for {
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			return
		}
	}
}

func pushStates(conn *websocket.Conn, sub *subscription.Subscription) {
	for next := range sub.Updates() {
		if err := conn.SetWriteDeadline(time.Now().Add(timeouts.PushWrite)); err != nil {
			return
		}
		if err := websocket.JSON.Send(conn, next); err != nil {
			log.Printf("subscribe %s: drop subscriber at version %d: %v", sub.RoomID(), next.Version, err)
			return
		}
	}
}
