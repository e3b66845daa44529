// Package auth mints and verifies the HS256 tokens used by enrollment and
// sessions. Tokens are stateless: validity is purely cryptographic plus the
// expiry claim.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A setup token proves a one-time code was verified and is
// only good for setting a PIN; a session token authenticates API calls.
const (
	PurposeSetup   = "setup"
	PurposeSession = "session"
)

// Claims carries the identity and purpose of a token.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	Purpose string `json:"purpose"`
}

// GenerateToken signs claims, stamping issued-at now and expiry now+validity.
func GenerateToken(claims Claims, secretKey []byte, now time.Time, validityDuration time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken verifies signature and expiry as of now. Expired tokens yield
// common.ErrTokenExpired, anything else common.ErrInvalidToken. The purpose
// is not checked here; callers decide which purposes they accept.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Email == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
