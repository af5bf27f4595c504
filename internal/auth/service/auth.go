package service

import (
	"context"
	"errors"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/store"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/cryptox"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

// AuthService orchestrates the credential lifecycle: login issues a
// token pair, refresh rotates it, logout revokes it.
type AuthService struct {
	Store    store.Store
	Issuer   *token.Issuer
	Verifier *token.Verifier
	Refresh  *token.RefreshTokenStore
	Revoked  *token.RevocationStore
	Events   *token.Dispatcher

	// RefreshTTL bounds the age check when verifying refresh tokens,
	// which naturally live longer than the access-token max age.
	RefreshTTL time.Duration
}

// Login verifies a local credential and issues an access/refresh pair.
// Every failure surfaces as ErrInvalidCredentials: unknown email, missing
// local password, and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.RequestMeta) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	p, err := s.Store.Principals().FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		s.Events.Emit(meta.Event(domain.EventLoginFailed, "", now))
		return nil, domain.ErrInvalidCredentials
	}

	// External-only principals have no local password.
	if p.PasswordHash == "" || cryptox.VerifyPassword(password, p.PasswordHash) != nil {
		l.Info("login rejected", "principal_id", p.ID)
		s.Events.Emit(meta.Event(domain.EventLoginFailed, p.ID, now))
		return nil, domain.ErrInvalidCredentials
	}

	return s.issuePair(p.ID)
}

// RefreshPair validates a presented refresh token and rotates it: the old
// refresh record and jti are revoked and a fresh access/refresh pair is
// issued. Any failure revokes the presented token so it cannot be retried.
func (s *AuthService) RefreshPair(ctx context.Context, refreshToken string, meta domain.RequestMeta) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := s.Verifier.Verify(refreshToken, token.VerifyOptions{
		RequiredKind: jwtx.KindRefresh,
		MaxAge:       s.RefreshTTL,
	})
	if err != nil {
		s.Refresh.Revoke(refreshToken)
		s.Events.Emit(meta.Event(domain.EventTokenRejected, "", now))
		l.Info("refresh rejected", "err", err)
		return nil, mapRefreshError(err)
	}

	rec, err := s.Refresh.Validate(refreshToken)
	if err != nil {
		s.Refresh.Revoke(refreshToken)
		s.Revoked.Revoke(claims.TokenID())
		s.Events.Emit(meta.Event(domain.EventTokenRejected, claims.PrincipalID(), now))
		l.Info("refresh rejected", "principal_id", claims.PrincipalID(), "err", err)
		return nil, err
	}

	// Rotation: the presented refresh token is single-use.
	s.Refresh.Revoke(refreshToken)
	s.Revoked.Revoke(claims.TokenID())

	return s.issuePair(rec.PrincipalID)
}

// Logout revokes the access token's identifier and the refresh record.
// Idempotent: revoking already-revoked credentials is a no-op.
func (s *AuthService) Logout(ctx context.Context, id domain.Identity, refreshToken string) {
	if id.TokenID != "" {
		s.Revoked.Revoke(id.TokenID)
	}
	if refreshToken == "" {
		return
	}
	s.Refresh.Revoke(refreshToken)

	// Also revoke the refresh token's own jti so the signed credential is
	// dead even if the store record has already been swept.
	if rc, err := s.Verifier.Verify(refreshToken, token.VerifyOptions{
		RequiredKind: jwtx.KindRefresh,
		MaxAge:       s.RefreshTTL,
	}); err == nil {
		s.Revoked.Revoke(rc.TokenID())
	} else {
		slogx.FromContext(ctx).Debug("logout refresh verify failed", "err", err)
	}
}

func (s *AuthService) issuePair(principalID string) (*domain.TokenPair, error) {
	access, err := s.Issuer.IssueAccess(principalID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issuer.IssueRefresh(principalID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.Issuer.AccessTTL(),
	}, nil
}

// mapRefreshError folds access-token taxonomy errors from the verifier
// into the refresh-token taxonomy the caller expects.
func mapRefreshError(err error) error {
	switch {
	case errors.Is(err, domain.ErrExpired):
		return domain.ErrExpiredRefreshToken
	case errors.Is(err, domain.ErrRevoked):
		return domain.ErrRevokedRefreshToken
	default:
		return domain.ErrInvalidRefreshToken
	}
}
