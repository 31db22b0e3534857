package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints the bearer token stored on a user record and checks
// inbound tokens before they are looked up.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) error
}

// OpaqueTokens issues "tok_{user id}" strings.
type OpaqueTokens struct{}

// Issue implements TokenIssuer.
func (OpaqueTokens) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return "tok_" + userID, nil
}

// Verify implements TokenIssuer. Opaque tokens are only checked for presence.
func (OpaqueTokens) Verify(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}
	return nil
}

// TokenManager issues signed JWTs. Tokens carry no expiry: a token is minted
// once per user and stays valid for as long as it is stored on the user.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret and issuer.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue implements TokenIssuer.
func (t *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := t.now()
	claims := jwt.MapClaims{
		"iss": t.issuer,
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify implements TokenIssuer.
func (t *TokenManager) Verify(token string) error {
	_, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
