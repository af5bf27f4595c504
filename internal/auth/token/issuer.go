package token

import (
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/pkg/jwtx"
)

// Issuer mints signed credentials. Construction fails fast on a missing
// secret (via the codec); issuance itself has no failure modes beyond
// signing errors.
type Issuer struct {
	codec      jwtx.Codec
	refresh    *RefreshTokenStore
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

// NewIssuer wires an issuer to the claims codec and refresh store.
func NewIssuer(
	codec jwtx.Codec,
	refresh *RefreshTokenStore,
	issuer, audience string,
	accessTTL, refreshTTL time.Duration,
) *Issuer {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &Issuer{
		codec:      codec,
		refresh:    refresh,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccess mints a standard access token for the principal.
func (i *Issuer) IssueAccess(principalID string) (string, error) {
	return i.Issue(principalID, jwtx.KindAccess, i.accessTTL)
}

// Issue mints a token of an arbitrary kind and lifetime. Each call embeds
// a fresh ULID jti. No side effects beyond computation.
func (i *Issuer) Issue(principalID string, kind jwtx.Kind, ttl time.Duration) (string, error) {
	claims := jwtx.NewClaims(principalID, kind, ttl, i.issuer, i.audience, i.now())
	signed, err := i.codec.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssueRefresh mints a refresh token and records it in the refresh store.
func (i *Issuer) IssueRefresh(principalID string) (string, error) {
	signed, err := i.Issue(principalID, jwtx.KindRefresh, i.refreshTTL)
	if err != nil {
		return "", err
	}
	i.refresh.Create(signed, principalID)
	return signed, nil
}

// AccessTTL reports the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }
