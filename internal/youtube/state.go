package youtube

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidState = errors.New("invalid oauth state")

// StateCodec carries the user id through the provider round trip.
type StateCodec interface {
	Encode(userID string) (string, error)
	Decode(state string) (string, error)
}

// PlainState uses the user id itself as the state value.
type PlainState struct{}

func (PlainState) Encode(userID string) (string, error) { return userID, nil }

func (PlainState) Decode(state string) (string, error) {
	if state == "" {
		return "", errInvalidState
	}
	return state, nil
}

// SignedState wraps the user id in a short-lived HS256 token so a callback
// cannot be replayed for another user.
type SignedState struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

const stateAudience = "youtube-oauth-state"

func NewSignedState(secret string, ttl time.Duration) *SignedState {
	return &SignedState{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SignedState) Encode(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

func (s *SignedState) Decode(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", errInvalidState
	}
	return claims.Subject, nil
}
