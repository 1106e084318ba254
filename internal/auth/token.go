package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential covers missing, malformed, expired and
// signature-mismatched tokens alike. Callers reject and never retry.
var ErrInvalidCredential = errors.New("invalid credential")

type Claims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager is the single trust root: the same instance verifies tokens
// for REST requests and for websocket handshakes.
type TokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

func NewTokenManager(secretKey string, tokenDuration time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a signed token for the given user.
func (m *TokenManager) Generate(userID int) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "parley",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify validates the token and returns the user it identifies.
func (m *TokenManager) Verify(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidCredential
	}
	return claims.UserID, nil
}

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the "token" query parameter used by the websocket handshake.
func ExtractToken(r *http.Request) (string, error) {
	const bearerPrefix = "Bearer "

	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(header, bearerPrefix) {
			return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidCredential)
		}
		return strings.TrimPrefix(header, bearerPrefix), nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: no token supplied", ErrInvalidCredential)
}
