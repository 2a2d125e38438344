// Package auth issues and verifies the tokens that bind a WebSocket client to
// one seat of one game, and hashes optional table passwords.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a seat token stays valid; 0 means no exp claim.
	tokenTTL time.Duration
)

var (
	ErrNotInitialized = errors.New("auth keys not initialized")
	ErrInvalidToken   = errors.New("invalid seat token")
)

// SeatClaims identify a seat. The subject is the game id.
type SeatClaims struct {
	Seat int `json:"seat"`
	jwt.RegisteredClaims
}

// parseTokenExpireTime reads TOKEN_EXPIRE_TIME ("never", "0", or a Go duration).
func parseTokenExpireTime() error {
	v := os.Getenv("TOKEN_EXPIRE_TIME")
	if v == "never" || v == "0" || v == "" {
		tokenTTL = 0
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	tokenTTL = d
	return nil
}

// Init generates a fresh ed25519 key pair and reads the token lifetime.
// Tokens do not survive a restart, and neither do the games they point at.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and reads the token lifetime.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("bad ed25519 key size: private %d, public %d", len(privateKeyData), len(publicKeyData))
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	return parseTokenExpireTime()
}

// CreateSeatToken signs a token granting control of seat in gameID.
func CreateSeatToken(gameID uuid.UUID, seat int) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	now := time.Now()
	claims := SeatClaims{
		Seat: seat,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  gameID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateSeatToken verifies a token and returns the game id and seat it grants.
func AuthenticateSeatToken(tokenString string) (uuid.UUID, int, error) {
	if publicKey == nil {
		return uuid.Nil, 0, ErrNotInitialized
	}
	var claims SeatClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, 0, ErrInvalidToken
	}

	gameID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}
	return gameID, claims.Seat, nil
}
