package auth

import (
	"fmt"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateTTL bounds how long a login may wait for its callback.
const StateTTL = 10 * time.Minute

// StateSigner issues and verifies OAuth state parameters as HS256 tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a [StateSigner] keyed by secret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: StateTTL, now: time.Now}
}

// Issue returns a new random state token.
func (s *StateSigner) Issue() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nil
}

// Verify checks the signature and expiry of a state token.
func (s *StateSigner) Verify(state string) error {
	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStateMismatch, err)
	}
	return nil
}
