package intent

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
)

func mustIntent(t *testing.T, typ Type, payload any) Intent {
	t.Helper()
	in, err := New(typ, "player-1", payload, 1700000000000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

func TestValidateAcceptsWellFormedIntents(t *testing.T) {
	intents := []Intent{
		mustIntent(t, TypeRollDice, nil),
		mustIntent(t, TypeJoinGame, JoinPayload{Name: "Ana"}),
		mustIntent(t, TypeJoinGame, nil),
		mustIntent(t, TypePurchaseProperty, PropertyPayload{PropertyID: "t1"}),
		mustIntent(t, TypeDevelopProperty, DevelopPayload{PropertyID: "t1", Kind: DevelopCrypt}),
		mustIntent(t, TypePayRent, RentPayload{PropertyID: "h1"}),
		mustIntent(t, TypePayRent, RentPayload{ToPlayerID: "b", Amount: 50}),
		mustIntent(t, TypeUseStealCard, StealPayload{TargetID: "b", Amount: 500}),
		mustIntent(t, TypeEndTurn, nil),
		mustIntent(t, TypeStartGame, nil),
	}
	for _, in := range intents {
		if err := in.Validate(); err != nil {
			t.Fatalf("Validate(%s): %v", in.Type, err)
		}
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	base := mustIntent(t, TypeRollDice, nil)

	noPlayer := base
	noPlayer.PlayerID = " "
	noType := base
	noType.Type = ""
	noTimestamp := base
	noTimestamp.Timestamp = 0
	unknown := base
	unknown.Type = "TELEPORT"

	tests := map[string]struct {
		in     Intent
		reason string
	}{
		"player":    {noPlayer, "MissingPlayerId"},
		"type":      {noType, "MissingType"},
		"timestamp": {noTimestamp, "MissingTimestamp"},
		"unknown":   {unknown, "UnknownType"},
	}
	for name, tc := range tests {
		err := tc.in.Validate()
		if !errors.Is(err, apperrors.Rule(apperrors.CodeValidation, tc.reason, "")) {
			t.Fatalf("%s: Validate() = %v, want reason %s", name, err, tc.reason)
		}
	}
}

func TestValidateRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		in     Intent
		reason string
	}{
		{mustIntent(t, TypePurchaseProperty, PropertyPayload{}), "MissingProperty"},
		{mustIntent(t, TypePurchaseProperty, PropertyPayload{PropertyID: "nowhere"}), "UnknownProperty"},
		{mustIntent(t, TypeDevelopProperty, DevelopPayload{PropertyID: "t1", Kind: "hotel"}), "InvalidDevelopment"},
		{mustIntent(t, TypePayRent, RentPayload{}), "MissingRecipient"},
		{mustIntent(t, TypePayRent, RentPayload{ToPlayerID: "b"}), "InvalidAmount"},
		{mustIntent(t, TypePayRent, RentPayload{PropertyID: "t1", ToPlayerID: "b"}), "AmbiguousRent"},
		{mustIntent(t, TypeUseStealCard, StealPayload{Amount: 5}), "MissingTarget"},
		{mustIntent(t, TypeUseStealCard, StealPayload{TargetID: "b"}), "InvalidAmount"},
	}
	for _, tc := range tests {
		err := tc.in.Validate()
		if !errors.Is(err, apperrors.Rule(apperrors.CodeValidation, tc.reason, "")) {
			t.Fatalf("%s: Validate() = %v, want reason %s", tc.in.Type, err, tc.reason)
		}
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	in := mustIntent(t, TypePurchaseProperty, nil)
	in.Payload = json.RawMessage(`{"propertyId":`)
	if err := in.Validate(); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIntentJSONShape(t *testing.T) {
	in := mustIntent(t, TypeUseStealCard, StealPayload{TargetID: "b", Amount: 10})
	in.ID = "k1"
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"intentId", "type", "playerId", "payload", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected %q in %s", key, raw)
		}
	}
}
