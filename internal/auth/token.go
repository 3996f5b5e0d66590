// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token configuration.
const (
	// FirstFactorTokenTTL bounds tokens issued on password login alone.
	// They are a weaker, pre-verification credential.
	FirstFactorTokenTTL = 15 * time.Minute

	// VerifiedTokenTTL bounds tokens issued after second-factor
	// verification. These represent a fully verified session.
	VerifiedTokenTTL = time.Hour

	// MinSigningKeyBytes is the minimum accepted HMAC key length.
	MinSigningKeyBytes = 32
)

// Claims carries the identity embedded in a bearer token. Verified is
// true only for tokens minted after second-factor verification;
// protected resources require it.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Verified  bool   `json:"verified"`
}

// TokenIssuer signs and validates self-contained bearer tokens. Validity
// is signature plus expiry; tokens are never looked up against server
// state and cannot be revoked before expiry.
type TokenIssuer struct {
	key []byte
}

// NewTokenIssuer creates a TokenIssuer with the given HMAC signing key.
// Key misconfiguration is a startup-time failure, not a request-time one.
func NewTokenIssuer(key []byte) (*TokenIssuer, error) {
	if len(key) < MinSigningKeyBytes {
		return nil, oops.Code("TOKEN_KEY_INVALID").
			With("min_bytes", MinSigningKeyBytes).
			Errorf("signing key must be at least %d bytes", MinSigningKeyBytes)
	}
	return &TokenIssuer{key: key}, nil
}

// Issue mints an HS256-signed token for the identity with the given TTL.
func (i *TokenIssuer) Issue(accountID, email, fullName string, verified bool, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   accountID,
		},
		AccountID: accountID,
		Email:     email,
		FullName:  fullName,
		Verified:  verified,
	})

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the signature and expiry of a token and returns its
// claims. Expired tokens and malformed/forged tokens get distinct codes
// so they can be told apart in logs; both are 401-equivalents to callers.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).Errorf("token has expired")
		}
		return nil, oops.Code(CodeTokenInvalid).Wrap(err)
	}
	if !token.Valid {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token is not valid")
	}
	return claims, nil
}
