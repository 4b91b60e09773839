package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TokenVerifier checks a bearer token and returns the profile id it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (subject string, err error)
}

// RoleResolver turns a session token into a Principal. The role always comes
// from the stored profile; the token only names the subject.
type RoleResolver struct {
	tokens   TokenVerifier
	profiles ProfileDirectory
	cache    *principalCache
	logger   *slog.Logger
}

// NewRoleResolver constructs a RoleResolver. cacheTTL bounds how long a
// resolved principal is reused; zero or negative disables the cache.
func NewRoleResolver(tokens TokenVerifier, profiles ProfileDirectory, cacheTTL time.Duration, now func() time.Time) *RoleResolver {
	return NewRoleResolverWithLogger(tokens, profiles, cacheTTL, now, nil)
}

// NewRoleResolverWithLogger constructs a RoleResolver with a specified logger.
func NewRoleResolverWithLogger(tokens TokenVerifier, profiles ProfileDirectory, cacheTTL time.Duration, now func() time.Time, logger *slog.Logger) *RoleResolver {
	var cache *principalCache
	if cacheTTL > 0 {
		cache = newPrincipalCache(cacheTTL, 0, now)
	}
	return &RoleResolver{
		tokens:   tokens,
		profiles: profiles,
		cache:    cache,
		logger:   defaultLogger(logger),
	}
}

// Resolve verifies token and loads the matching profile.
func (r *RoleResolver) Resolve(ctx context.Context, token string) (principal Principal, err error) {
	if r == nil {
		err = fmt.Errorf("RoleResolver is nil")
		return
	}
	if r.tokens == nil || r.profiles == nil {
		err = fmt.Errorf("role resolver not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := serviceLogger(ctx, r.logger, "RoleResolver", "Resolve", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session resolution failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID, "role", string(principal.Role)).DebugContext(ctx, "session resolved")
	}()

	if trimmed == "" {
		err = newError(ErrUnauthenticated, "a valid session is required")
		return
	}

	subject, verifyErr := r.tokens.VerifyToken(trimmed)
	if verifyErr != nil || strings.TrimSpace(subject) == "" {
		err = wrapError(ErrUnauthenticated, "your session is invalid or has expired", verifyErr)
		return
	}

	if cached, ok := r.cache.Get(subject); ok {
		principal = cached
		return
	}

	profile, lookupErr := r.profiles.GetProfile(ctx, subject)
	if lookupErr != nil {
		if isNotFoundError(lookupErr) {
			err = wrapError(ErrUnauthenticated, "your profile could not be found", lookupErr)
			return
		}
		if errors.Is(lookupErr, context.Canceled) || errors.Is(lookupErr, context.DeadlineExceeded) {
			err = wrapError(ErrUpstreamUnavailable, "the request was cancelled before the store answered", lookupErr)
			return
		}
		err = wrapError(ErrUpstreamUnavailable, "the profile store is unavailable, please try again", lookupErr)
		return
	}

	if !profile.Role.Valid() {
		err = newError(ErrUnauthorized, "your profile has no recognised role")
		return
	}

	principal = profile.Principal()
	r.cache.Store(subject, principal)
	return
}
