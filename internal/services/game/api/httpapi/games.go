package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/platform/pagination"
	"github.com/louisbranch/cryptopoly/internal/platform/timeouts"
	"github.com/louisbranch/cryptopoly/internal/services/game/auth"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
)

type createRoomRequest struct {
	RoomID string `json:"roomId,omitempty"`
}

type createRoomResponse struct {
	RoomID  string `json:"roomId"`
	Version int64  `json:"version"`
}

type submitResponse struct {
	OK        bool  `json:"ok"`
	Version   int64 `json:"version"`
	ActionID  int64 `json:"actionId,omitempty"`
	Applied   bool  `json:"applied"`
	Duplicate bool  `json:"duplicate,omitempty"`
}

func roomIDFrom(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["roomId"])
}

func (h *handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxIntentBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, invalidRequest("MalformedBody", "request body must be JSON"))
			return
		}
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		if h.cfg.NewRoomID == nil {
			writeError(w, r, invalidRequest("MissingRoomId", "room id is required"))
			return
		}
		generated, err := h.cfg.NewRoomID()
		if err != nil {
			writeError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "generate room id", err))
			return
		}
		roomID = generated
	}

	created, err := h.cfg.Pipeline.CreateRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: created.RoomID, Version: created.Version})
}

func (h *handler) handleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFrom(r)

	var in intent.Intent
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntentBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		writeError(w, r, invalidRequest("MalformedBody", "intent body must be a JSON object"))
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if h.cfg.Tokens != nil {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if err := h.cfg.Tokens.Authorize(token, roomID, in.PlayerID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.ApplyIntent)
	defer cancel()
	out, err := h.cfg.Pipeline.Apply(ctx, roomID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := submitResponse{
		OK:        true,
		Version:   out.State.Version,
		Applied:   out.Applied,
		Duplicate: out.Duplicate,
	}
	if out.Entry != nil {
		resp.ActionID = out.Entry.ActionID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	current, err := h.cfg.Store.GetState(r.Context(), roomIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *handler) handleGetLog(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFrom(r)
	query := r.URL.Query()
	page, err := pagination.ParsePage(query.Get("after"), query.Get("limit"), h.cfg.LogPage)
	if err != nil {
		writeError(w, r, invalidRequest("InvalidPage", err.Error()))
		return
	}
	if _, err := h.cfg.Store.GetState(r.Context(), roomID); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.cfg.Store.ListEntries(r.Context(), roomID, page.After, page.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
