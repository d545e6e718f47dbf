// Package intent describes player-attributed requests to change game state.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
)

// Type names an intent.
type Type string

const (
	TypeRollDice         Type = "ROLL_DICE"
	TypePurchaseProperty Type = "PURCHASE_PROPERTY"
	TypeDevelopProperty  Type = "DEVELOP_PROPERTY"
	TypePayRent          Type = "PAY_RENT"
	TypeUseStealCard     Type = "USE_STEAL_CARD"
	TypeEndTurn          Type = "END_TURN"
	TypeStartGame        Type = "START_GAME"
	TypeJoinGame         Type = "JOIN_GAME"
)

// Types lists every intent type the reducer accepts.
var Types = []Type{
	TypeRollDice,
	TypePurchaseProperty,
	TypeDevelopProperty,
	TypePayRent,
	TypeUseStealCard,
	TypeEndTurn,
	TypeStartGame,
	TypeJoinGame,
}

// Known reports whether t is a supported intent type.
func (t Type) Known() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Development kinds for DEVELOP_PROPERTY.
const (
	DevelopGraveyard = "graveyard"
	DevelopCrypt     = "crypt"
)

// Intent is an immutable request from one player.
//
// ID is an optional client-chosen idempotency key. Timestamp is unix
// milliseconds on the submitting client.
type Intent struct {
	ID        string          `json:"intentId,omitempty"`
	Type      Type            `json:"type"`
	PlayerID  string          `json:"playerId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// JoinPayload is the payload of JOIN_GAME.
type JoinPayload struct {
	Name string `json:"name"`
}

// PropertyPayload is the payload of PURCHASE_PROPERTY.
type PropertyPayload struct {
	PropertyID string `json:"propertyId"`
}

// DevelopPayload is the payload of DEVELOP_PROPERTY.
type DevelopPayload struct {
	PropertyID string `json:"propertyId"`
	Kind       string `json:"kind"`
}

// RentPayload is the payload of PAY_RENT. Either PropertyID selects computed
// rent, or ToPlayerID and Amount describe a fixed transfer.
type RentPayload struct {
	PropertyID string `json:"propertyId,omitempty"`
	ToPlayerID string `json:"toPlayerId,omitempty"`
	Amount     int    `json:"amount,omitempty"`
}

// StealPayload is the payload of USE_STEAL_CARD.
type StealPayload struct {
	TargetID string `json:"targetId"`
	Amount   int    `json:"amount"`
}

// New builds an intent with payload encoded as JSON.
func New(t Type, playerID string, payload any, timestamp int64) (Intent, error) {
	in := Intent{Type: t, PlayerID: playerID, Timestamp: timestamp}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Intent{}, fmt.Errorf("encode %s payload: %w", t, err)
		}
		in.Payload = raw
	}
	return in, nil
}

// Decode unmarshals the payload into T. A missing payload yields T's zero value.
func Decode[T any](in Intent) (T, error) {
	var out T
	if len(bytes.TrimSpace(in.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(in.Payload), []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(in.Payload, &out); err != nil {
		return out, apperrors.Wrap(apperrors.CodeValidation, fmt.Sprintf("decode %s payload", in.Type), err)
	}
	return out, nil
}

// Validate rejects malformed intents before they reach the pipeline.
func (in Intent) Validate() error {
	if strings.TrimSpace(in.PlayerID) == "" {
		return invalid("MissingPlayerId", "playerId is required")
	}
	if in.Type == "" {
		return invalid("MissingType", "type is required")
	}
	if !in.Type.Known() {
		return invalid("UnknownType", fmt.Sprintf("unknown intent type %q", in.Type))
	}
	if in.Timestamp <= 0 {
		return invalid("MissingTimestamp", "timestamp is required")
	}

	switch in.Type {
	case TypePurchaseProperty:
		p, err := Decode[PropertyPayload](in)
		if err != nil {
			return err
		}
		return validateProperty(p.PropertyID)
	case TypeDevelopProperty:
		p, err := Decode[DevelopPayload](in)
		if err != nil {
			return err
		}
		if err := validateProperty(p.PropertyID); err != nil {
			return err
		}
		if p.Kind != DevelopGraveyard && p.Kind != DevelopCrypt {
			return invalid("InvalidDevelopment", fmt.Sprintf("development kind must be %q or %q", DevelopGraveyard, DevelopCrypt))
		}
	case TypePayRent:
		p, err := Decode[RentPayload](in)
		if err != nil {
			return err
		}
		switch {
		case p.PropertyID != "" && p.ToPlayerID != "":
			return invalid("AmbiguousRent", "rent takes either propertyId or toPlayerId")
		case p.PropertyID != "":
			return validateProperty(p.PropertyID)
		case p.ToPlayerID == "":
			return invalid("MissingRecipient", "propertyId or toPlayerId is required")
		case p.Amount <= 0:
			return invalid("InvalidAmount", "amount must be positive")
		}
	case TypeUseStealCard:
		p, err := Decode[StealPayload](in)
		if err != nil {
			return err
		}
		if strings.TrimSpace(p.TargetID) == "" {
			return invalid("MissingTarget", "targetId is required")
		}
		if p.Amount <= 0 {
			return invalid("InvalidAmount", "amount must be positive")
		}
	case TypeJoinGame:
		if _, err := Decode[JoinPayload](in); err != nil {
			return err
		}
	}
	return nil
}

func validateProperty(id string) error {
	if id == "" {
		return invalid("MissingProperty", "propertyId is required")
	}
	if _, ok := board.Lookup(id); !ok {
		return invalid("UnknownProperty", fmt.Sprintf("unknown property %q", id))
	}
	return nil
}

func invalid(reason, message string) error {
	return apperrors.Rule(apperrors.CodeValidation, reason, message)
}
