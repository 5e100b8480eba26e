// Package sessiontest mints access tokens for tests.
package sessiontest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Secret signs every token minted here. Clients never verify signatures.
var Secret = []byte("taskpulse-test-secret")

// Token returns an HS256 access token for username expiring at exp.
// A zero exp yields a token without an exp claim.
func Token(t testing.TB, username string, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"username":   username,
		"user_id":    42,
		"token_type": "access",
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(Secret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}
