// Package auth issues and verifies player identity tokens.
//
// Tokens are HS256 JWTs whose subject is the player's userId and whose
// "room" claim scopes them to one room. The request channel uses them to
// make sure an intent's playerId is the caller.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
)

const (
	// DefaultIssuer is stamped on issued tokens and required on verify.
	DefaultIssuer = "cryptopoly"
	// DefaultTTL bounds token lifetime when the config leaves it unset.
	DefaultTTL = 12 * time.Hour
)

// ErrNotConfigured indicates no token secret was provided.
var ErrNotConfigured = errors.New("player token secret is not configured")

// tokenEnv holds raw env values before validation.
type tokenEnv struct {
	Secret string        `env:"CRYPTOPOLY_GAME_PLAYER_TOKEN_SECRET"`
	Issuer string        `env:"CRYPTOPOLY_GAME_PLAYER_TOKEN_ISSUER" envDefault:"cryptopoly"`
	TTL    time.Duration `env:"CRYPTOPOLY_GAME_PLAYER_TOKEN_TTL" envDefault:"12h"`
}

// Config defines how tokens are signed and checked.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// LoadConfigFromEnv reads the token configuration. It returns
// ErrNotConfigured when the secret is empty.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse player token env: %w", err)
	}
	secret := strings.TrimSpace(raw.Secret)
	if secret == "" {
		return Config{}, ErrNotConfigured
	}
	return Config{
		Secret: []byte(secret),
		Issuer: strings.TrimSpace(raw.Issuer),
		TTL:    raw.TTL,
		Now:    now,
	}, nil
}

// Claims are the validated contents of a player token.
type Claims struct {
	UserID    string
	RoomID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type playerClaims struct {
	jwt.RegisteredClaims
	RoomID string `json:"room,omitempty"`
}

// Tokens signs and verifies player tokens with a shared secret.
type Tokens struct {
	cfg Config
}

// NewTokens validates cfg and fills defaults.
func NewTokens(cfg Config) (*Tokens, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNotConfigured
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tokens{cfg: cfg}, nil
}

// Issue returns a token for userID. An empty roomID yields a token valid
// for any room.
func (t *Tokens) Issue(userID, roomID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	now := t.cfg.Now().UTC()
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
		},
		RoomID: strings.TrimSpace(roomID),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign player token: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks signature, issuer and expiry.
func (t *Tokens) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.Rule(apperrors.CodeUnauthenticated, "MissingToken", "player token is required")
	}

	var parsed playerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.cfg.Now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.Rule(apperrors.CodeUnauthenticated, "InvalidToken", "player token subject is required")
	}

	claims := Claims{
		UserID:    parsed.Subject,
		RoomID:    parsed.RoomID,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// Authorize verifies token and checks it speaks for playerID in roomID.
func (t *Tokens) Authorize(token, roomID, playerID string) error {
	claims, err := t.Verify(token)
	if err != nil {
		return err
	}
	if claims.RoomID != "" && claims.RoomID != roomID {
		return apperrors.WithMetadata(apperrors.CodePermissionDenied, "WrongRoom",
			"player token is scoped to another room", map[string]string{"RoomID": roomID})
	}
	if claims.UserID != playerID {
		return apperrors.WithMetadata(apperrors.CodePermissionDenied, "WrongPlayer",
			"player token does not match intent player", map[string]string{"PlayerID": playerID})
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Rule(apperrors.CodeUnauthenticated, "ExpiredToken", "player token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Rule(apperrors.CodeUnauthenticated, "InvalidToken", "player token signature is invalid")
	default:
		return apperrors.Rule(apperrors.CodeUnauthenticated, "InvalidToken", "player token is invalid")
	}
}
