// Package realtime carries the authenticated publish-subscribe channel:
// observers subscribe to run progress and privileged operators issue
// pause/resume/cancel commands over the same connection.
package realtime

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated principal attached to a connection at
// handshake time.
type Identity struct {
	Subject string
	Name    string
	Admin   bool
}

type accessClaims struct {
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// ErrInvalidToken covers missing, malformed and expired credentials.
var ErrInvalidToken = errors.New("invalid credential")

// VerifyToken validates a bearer credential's signature and expiry and
// returns the identity it carries.
func VerifyToken(secret, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{
		Subject: claims.Subject,
		Name:    claims.Name,
		Admin:   claims.Admin,
	}, nil
}
