package interfaces

import (
	"context"

	"myinstanceserver/domain"
)

// Authenticator resolves connection tokens to identities.
//
//go:generate moq -stub -out mock/authenticator.go -pkg mock . Authenticator
type Authenticator interface {
	// Authenticate verifies signature and expiry of token and resolves its identity provider.
	// Returns not_authenticated on any token problem; service.ErrTokenExpired is wrapped when
	// the token is only expired.
	Authenticate(ctx context.Context, token string) (domain.Identity, error)

	// IdentityFromExpired verifies the signature but ignores expiry. Used on disconnect so a
	// peer whose token expired mid-session can still be attributed.
	IdentityFromExpired(ctx context.Context, token string) (domain.Identity, error)
}
