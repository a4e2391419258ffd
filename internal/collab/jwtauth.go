package collab

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuth resolves an api key that is itself a signed JWT, as issued by an
// auth service that hands callers a bearer token rather than an opaque
// lookup key. The user id is taken from the standard "sub" claim.
type JWTAuth struct {
	keyFunc jwt.Keyfunc
}

// NewJWTAuth builds a JWTAuth that verifies tokens with the fixed secret
// key, using HMAC signing methods only.
func NewJWTAuth(secret []byte) *JWTAuth {
	return &JWTAuth{
		keyFunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("collab: unexpected signing method %v", token.Header["alg"])
			}
			return secret, nil
		},
	}
}

// Resolve parses and verifies apiKey as a JWT and returns the user
// identified by its subject claim.
func (a *JWTAuth) Resolve(_ context.Context, apiKey string) (User, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(apiKey, &claims, a.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return User{}, ErrUnauthorized
		}
		return User{}, fmt.Errorf("collab: parse api key: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return User{}, ErrUnauthorized
	}
	return User{UserID: claims.Subject}, nil
}
