// Package auth issues and validates organizer access tokens. Tokens are
// HS256 JWTs; the single organizer identity and its secret hash come from
// configuration rather than a user table.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/secrets"
)

const issuer = "luckdraw"

// AccessTokenClaims are the JWT claims carried by organizer tokens. The
// principal id lives in the registered Subject claim.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
}

// TokenService creates and validates organizer access tokens.
type TokenService struct {
	signingKey  []byte
	organizerID domain.PrincipalID
	secretHash  string
	tokenTTL    time.Duration
}

// NewTokenService constructs a TokenService for the configured organizer.
func NewTokenService(signingKey string, organizerID domain.PrincipalID, secretHash string, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey:  []byte(signingKey),
		organizerID: organizerID,
		secretHash:  secretHash,
		tokenTTL:    tokenTTL,
	}
}

// IssueToken checks the organizer credentials and returns a signed token
// with its expiry. Identity and secret failures are indistinguishable to
// the caller.
func (s *TokenService) IssueToken(_ context.Context, organizerID, secret string) (string, time.Time, error) {
	principal, err := domain.ParsePrincipalID(organizerID)
	if err != nil || principal != s.organizerID || !secrets.Verify(s.secretHash, secret) {
		return "", time.Time{}, dErrors.New(dErrors.CodeUnauthorized, "invalid organizer credentials")
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a token string.
func (s *TokenService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
