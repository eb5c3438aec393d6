// Package testutil mints tokens accepted by the server in test mode.
package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestToken returns an HS256 token for userID signed with secret, valid for
// one hour.
func TestToken(secret []byte, userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Add(-time.Minute).Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
