package service

import (
	"context"
	"errors"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
)

// tokenAuthenticator implements interfaces.Authenticator with HMAC-signed access tokens whose
// subject is an identity provider id.
type tokenAuthenticator struct {
	secret            []byte
	timeProvider      interfaces.TimeProvider
	identityProviders interfaces.RecordStore[domain.IdentityProvider]
}

// NewTokenAuthenticator creates an Authenticator verifying tokens with secret and resolving their
// subject through the identity-provider records.
func NewTokenAuthenticator(
	secret []byte,
	timeProvider interfaces.TimeProvider,
	identityProviders interfaces.RecordStore[domain.IdentityProvider],
) interfaces.Authenticator {
	return &tokenAuthenticator{
		secret:            helpers.NilPanic(secret, "service.authenticator.go: secret is required"),
		timeProvider:      helpers.NilPanic(timeProvider, "service.authenticator.go: time provider is required"),
		identityProviders: helpers.NilPanic(identityProviders, "service.authenticator.go: identity providers are required"),
	}
}

func (a *tokenAuthenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := ParseAndVerify(token, a.secret)
	if err != nil {
		return domain.Identity{}, NewNotAuthenticatedError("invalid token", err)
	}
	if err := claims.CheckExpiry(a.timeProvider.Now()); err != nil {
		return domain.Identity{}, NewNotAuthenticatedError("token rejected", err)
	}
	return a.resolve(ctx, claims.Subject)
}

func (a *tokenAuthenticator) IdentityFromExpired(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := ParseAndVerify(token, a.secret)
	if err != nil {
		return domain.Identity{}, NewNotAuthenticatedError("invalid token", err)
	}
	return a.resolve(ctx, claims.Subject)
}

func (a *tokenAuthenticator) resolve(ctx context.Context, subject string) (domain.Identity, error) {
	if subject == "" {
		return domain.Identity{}, NewNotAuthenticatedError("token has no subject", nil)
	}
	idp, err := a.identityProviders.Get(ctx, subject, nil)
	if err != nil {
		if IsEntityNotFoundError(err) {
			return domain.Identity{}, NewMyError(ErrNotAuthenticated, "unknown identity provider", err)
		}
		return domain.Identity{}, NewTransientRecordError("get identity provider", err)
	}
	if idp.ID == "" {
		return domain.Identity{}, NewNotAuthenticatedError("unknown identity provider", nil)
	}
	return domain.Identity{IdentityProviderID: idp.ID, UserID: idp.UserID}, nil
}

// IsTokenExpired reports whether err was caused by an expired, otherwise valid token.
func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
