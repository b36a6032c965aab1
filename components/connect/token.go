package connect

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "dashboardai.connect"

// StateClaims is the payload of the OAuth state parameter.
type StateClaims struct {
	AttemptID string `json:"aid"`
	Provider  string `json:"prv"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies HS256 correlation tokens.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner builds a signer. The secret must not be empty.
func NewStateSigner(secret string) (*StateSigner, error) {
	if secret == "" {
		return nil, errors.New("connect: state secret is required")
	}
	return &StateSigner{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for attemptID valid for ttl.
func (s *StateSigner) Issue(attemptID, provider string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := StateClaims{
		AttemptID: attemptID,
		Provider:  provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("connect: sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token.
func (s *StateSigner) Verify(token string) (StateClaims, error) {
	var claims StateClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return StateClaims{}, fmt.Errorf("connect: invalid state: %w", err)
	}
	if !parsed.Valid || claims.AttemptID == "" {
		return StateClaims{}, errors.New("connect: invalid state")
	}
	return claims, nil
}
