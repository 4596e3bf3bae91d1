package auth

import (
	"context"
	"log/slog"
	"time"

	"luckdraw/internal/platform/middleware"
	"luckdraw/internal/session"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
)

// Validator adapts the TokenService to the middleware contract and fronts
// it with a session cache so repeated requests with the same token skip
// signature verification. Cache failures degrade to full validation.
type Validator struct {
	service *TokenService
	cache   session.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewValidator constructs a Validator. The cache may be nil, in which case
// every call validates the signature.
func NewValidator(service *TokenService, cache session.Cache, ttl time.Duration, logger *slog.Logger) *Validator {
	return &Validator{service: service, cache: cache, ttl: ttl, logger: logger}
}

// ValidateToken resolves a bearer token to its principal.
func (v *Validator) ValidateToken(tokenString string) (*middleware.Claims, error) {
	ctx := context.Background()

	if v.cache != nil {
		cached, ok, err := v.cache.Get(ctx, tokenString)
		if err != nil && v.logger != nil {
			v.logger.Warn("session cache read failed", "error", err)
		}
		if ok {
			principal, err := domain.ParsePrincipalID(cached)
			if err == nil {
				return &middleware.Claims{PrincipalID: principal}, nil
			}
			// Corrupt entry, drop it and fall through to full validation.
			_ = v.cache.Invalidate(ctx, tokenString)
		}
	}

	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	principal, err := domain.ParsePrincipalID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if v.cache != nil {
		ttl := v.ttl
		if claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
		if err := v.cache.Set(ctx, tokenString, principal.String(), ttl); err != nil && v.logger != nil {
			v.logger.Warn("session cache write failed", "error", err)
		}
	}

	return &middleware.Claims{PrincipalID: principal}, nil
}
