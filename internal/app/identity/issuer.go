// Package identity hands out anonymous participant ids and signs them into
// bearer tokens, so a reconnecting participant keeps their seat.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidRequest = errors.New("invalid identity request")
	ErrInvalidToken   = errors.New("invalid participant token")
)

type participantClaims struct {
	ParticipantID string `json:"pid"`
	jwt.RegisteredClaims
}

type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

type Identity struct {
	ParticipantID string `json:"participant_id"`
	Token         string `json:"token"`
}

func NewParticipantID() string {
	return uuid.NewString()
}

// Issue signs a token for participantID.
func (i Issuer) Issue(participantID string) (string, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" || len(i.Secret) == 0 {
		return "", ErrInvalidRequest
	}
	now := i.now()
	ttl := i.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := participantClaims{
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", fmt.Errorf("sign participant token: %w", err)
	}
	return signed, nil
}

// Verify returns the participant id carried by token.
func (i Issuer) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(i.Secret) == 0 {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &participantClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.Secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*participantClaims)
	if !ok || !parsed.Valid || claims.ParticipantID == "" {
		return "", ErrInvalidToken
	}
	return claims.ParticipantID, nil
}

// Resolve keeps the identity behind a valid token, or mints a new one when the
// token is missing or no longer valid.
func (i Issuer) Resolve(token string) (Identity, bool, error) {
	if pid, err := i.Verify(token); err == nil {
		return Identity{ParticipantID: pid, Token: strings.TrimSpace(token)}, false, nil
	}
	pid := NewParticipantID()
	signed, err := i.Issue(pid)
	if err != nil {
		return Identity{}, false, err
	}
	return Identity{ParticipantID: pid, Token: signed}, true, nil
}

func (i Issuer) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}
