package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/store"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/idx"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
)

// ExternalIdentity is what the third-party credential verifier returns
// for a valid identity token.
type ExternalIdentity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// IdentityVerifier is the external credential-verification collaborator
// (e.g. a hosted identity provider's token check endpoint).
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, rawToken string) (ExternalIdentity, error)
}

// Authenticator turns a presented bearer credential into an identity.
// Implementations return a uniform (Identity, error) result; there is no
// exception-style control flow between variants.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, rawToken string) (domain.Identity, error)
}

// LocalCredentialAuthenticator accepts locally-signed access tokens.
type LocalCredentialAuthenticator struct {
	Verifier *token.Verifier
}

func (a *LocalCredentialAuthenticator) Name() string { return "local" }

func (a *LocalCredentialAuthenticator) Authenticate(_ context.Context, rawToken string) (domain.Identity, error) {
	claims, err := a.Verifier.Verify(rawToken, token.VerifyOptions{RequiredKind: jwtx.KindAccess})
	if err != nil {
		return domain.Identity{}, err
	}

	id := domain.Identity{
		PrincipalID: claims.PrincipalID(),
		TokenID:     claims.TokenID(),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// ExternalIdentityAuthenticator accepts identity-provider tokens and
// upserts the matching local principal by external id.
type ExternalIdentityAuthenticator struct {
	Verifier IdentityVerifier
	Store    store.Store
}

func (a *ExternalIdentityAuthenticator) Name() string { return "external" }

func (a *ExternalIdentityAuthenticator) Authenticate(ctx context.Context, rawToken string) (domain.Identity, error) {
	ext, err := a.Verifier.VerifyIdentity(ctx, rawToken)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("external identity check: %w", err)
	}

	principals := a.Store.Principals()
	p, err := principals.FindByExternalID(ctx, ext.ExternalID)
	switch {
	case err == nil:
		// known principal
	case errors.Is(err, store.ErrNotFound):
		p = domain.Principal{
			ID:          idx.New().String(),
			ExternalID:  ext.ExternalID,
			Email:       ext.Email,
			DisplayName: ext.DisplayName,
			CreatedAt:   time.Now().UTC(),
		}
		if err := principals.Create(ctx, p); err != nil {
			if !errors.Is(err, store.ErrAlreadyExists) {
				return domain.Identity{}, fmt.Errorf("create principal: %w", err)
			}
			// Concurrent first login for the same subject: reread.
			p, err = principals.FindByExternalID(ctx, ext.ExternalID)
			if err != nil {
				return domain.Identity{}, fmt.Errorf("reread principal: %w", err)
			}
		}
	default:
		return domain.Identity{}, fmt.Errorf("lookup principal: %w", err)
	}

	return domain.Identity{
		PrincipalID: p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}, nil
}

// Chain tries authenticators in priority order and returns the first
// success. Verification failures are collected, not thrown; when every
// variant rejects the credential the last error is returned so the
// handler can log the specific reason while answering generically.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, rawToken string) (domain.Identity, error) {
	var lastErr error
	for _, a := range c {
		if a == nil {
			continue
		}
		id, err := a.Authenticate(ctx, rawToken)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = domain.ErrMalformed
	}
	return domain.Identity{}, lastErr
}
