package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/store/drivers/memory"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
)

// stubVerifier is an IdentityVerifier that accepts one fixed token.
type stubVerifier struct {
	accept   string
	identity ExternalIdentity
}

func (s *stubVerifier) VerifyIdentity(_ context.Context, rawToken string) (ExternalIdentity, error) {
	if rawToken != s.accept {
		return ExternalIdentity{}, errors.New("identity provider rejected token")
	}
	return s.identity, nil
}

func newLocalAuthenticator(t *testing.T) (*LocalCredentialAuthenticator, *token.Issuer) {
	t.Helper()

	codec, err := jwtx.NewHS256(
		[]byte("0123456789abcdef0123456789abcdef"),
		"shelfmark", "shelfmark-api",
	)
	require.NoError(t, err)

	refresh := token.NewRefreshTokenStore(7 * 24 * time.Hour)
	revoked := token.NewRevocationStore(7 * 24 * time.Hour)
	issuer := token.NewIssuer(codec, refresh, "shelfmark", "shelfmark-api", 15*time.Minute, 7*24*time.Hour)
	verifier := token.NewVerifier(codec, revoked, 24*time.Hour)

	return &LocalCredentialAuthenticator{Verifier: verifier}, issuer
}

func TestLocalCredentialAuthenticator(t *testing.T) {
	local, issuer := newLocalAuthenticator(t)
	ctx := context.Background()

	t.Run("valid access token", func(t *testing.T) {
		signed, err := issuer.IssueAccess("user-1")
		require.NoError(t, err)

		id, err := local.Authenticate(ctx, signed)
		require.NoError(t, err)
		require.Equal(t, "user-1", id.PrincipalID)
		require.NotEmpty(t, id.TokenID)
		require.False(t, id.ExpiresAt.IsZero())
	})

	t.Run("refresh token is rejected", func(t *testing.T) {
		signed, err := issuer.IssueRefresh("user-1")
		require.NoError(t, err)

		_, err = local.Authenticate(ctx, signed)
		require.ErrorIs(t, err, domain.ErrWrongKind)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := local.Authenticate(ctx, "garbage")
		require.ErrorIs(t, err, domain.ErrMalformed)
	})
}

func TestExternalIdentityAuthenticator(t *testing.T) {
	st := memory.NewStore()
	ext := &ExternalIdentityAuthenticator{
		Verifier: &stubVerifier{
			accept: "provider-token",
			identity: ExternalIdentity{
				ExternalID:  "ext-sub-1",
				Email:       "reader@example.com",
				DisplayName: "Test Reader",
			},
		},
		Store: st,
	}
	ctx := context.Background()

	t.Run("first login creates the principal", func(t *testing.T) {
		id, err := ext.Authenticate(ctx, "provider-token")
		require.NoError(t, err)
		require.NotEmpty(t, id.PrincipalID)
		require.Equal(t, "reader@example.com", id.Email)
		require.Empty(t, id.TokenID, "external identities carry no local jti")

		p, err := st.Principals().FindByExternalID(ctx, "ext-sub-1")
		require.NoError(t, err)
		require.Equal(t, id.PrincipalID, p.ID)
		require.Empty(t, p.PasswordHash)
	})

	t.Run("second login reuses the principal", func(t *testing.T) {
		first, err := ext.Authenticate(ctx, "provider-token")
		require.NoError(t, err)
		second, err := ext.Authenticate(ctx, "provider-token")
		require.NoError(t, err)
		require.Equal(t, first.PrincipalID, second.PrincipalID)
	})

	t.Run("provider rejection propagates", func(t *testing.T) {
		_, err := ext.Authenticate(ctx, "some-other-token")
		require.Error(t, err)
	})
}

func TestChain(t *testing.T) {
	local, issuer := newLocalAuthenticator(t)

	st := memory.NewStore()
	ext := &ExternalIdentityAuthenticator{
		Verifier: &stubVerifier{
			accept:   "provider-token",
			identity: ExternalIdentity{ExternalID: "ext-sub-1", Email: "reader@example.com"},
		},
		Store: st,
	}

	chain := Chain{ext, local}
	ctx := context.Background()

	t.Run("external token resolves via the provider", func(t *testing.T) {
		id, err := chain.Authenticate(ctx, "provider-token")
		require.NoError(t, err)
		require.Empty(t, id.TokenID)
	})

	t.Run("local token falls through to the local authenticator", func(t *testing.T) {
		signed, err := issuer.IssueAccess("user-1")
		require.NoError(t, err)

		id, err := chain.Authenticate(ctx, signed)
		require.NoError(t, err)
		require.Equal(t, "user-1", id.PrincipalID)
		require.NotEmpty(t, id.TokenID)
	})

	t.Run("every variant rejecting returns the last error", func(t *testing.T) {
		_, err := chain.Authenticate(ctx, "unacceptable")
		require.ErrorIs(t, err, domain.ErrMalformed)
	})

	t.Run("nil entries are skipped", func(t *testing.T) {
		sparse := Chain{nil, local}
		signed, err := issuer.IssueAccess("user-2")
		require.NoError(t, err)

		id, err := sparse.Authenticate(ctx, signed)
		require.NoError(t, err)
		require.Equal(t, "user-2", id.PrincipalID)
	})

	t.Run("empty chain", func(t *testing.T) {
		empty := Chain{}
		_, err := empty.Authenticate(ctx, "anything")
		require.ErrorIs(t, err, domain.ErrMalformed)
	})
}
