package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	authhttp "github.com/shelfmark/shelfmark/internal/auth/http"
	"github.com/shelfmark/shelfmark/internal/auth/service"
	"github.com/shelfmark/shelfmark/internal/auth/store/drivers/memory"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/cryptox"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
)

const (
	testEmail    = "reader@example.com"
	testPassword = "correct horse battery staple"
)

func newTestRouter(t *testing.T) (*authhttp.Router, *memory.Store) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	codec, err := jwtx.NewHS256(
		[]byte("0123456789abcdef0123456789abcdef"),
		"shelfmark", "shelfmark-api",
	)
	require.NoError(t, err)

	st := memory.NewStore()
	refresh := token.NewRefreshTokenStore(7 * 24 * time.Hour)
	revoked := token.NewRevocationStore(7 * 24 * time.Hour)
	issuer := token.NewIssuer(codec, refresh, "shelfmark", "shelfmark-api", 15*time.Minute, 7*24*time.Hour)
	verifier := token.NewVerifier(codec, revoked, 24*time.Hour)

	svc := &service.AuthService{
		Store:      st,
		Issuer:     issuer,
		Verifier:   verifier,
		Refresh:    refresh,
		Revoked:    revoked,
		RefreshTTL: 7 * 24 * time.Hour,
	}

	r := authhttp.NewRouter(st, logger)
	r.AuthService = svc
	r.Authenticators = service.Chain{&service.LocalCredentialAuthenticator{Verifier: verifier}}
	r.Advisor = token.NewAdvisor(issuer, revoked, nil, logger, 5*time.Minute, 0)
	r.Tracker = token.NewTracker(st.Principals(), nil, logger, time.Hour)
	r.ApplyRoutes()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, st.Principals().Create(context.Background(), domain.Principal{
		ID:           "01JGXF00000000000000000001",
		Email:        testEmail,
		DisplayName:  "Test Reader",
		PasswordHash: hash,
	}))

	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path, ip string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = ip + ":41000"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "shelfmark-test/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r http.Handler, ip string) authhttp.TokenResponse {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", ip,
		map[string]string{"email": testEmail, "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authhttp.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp := login(t, r, "203.0.113.1")
		require.NotEmpty(t, resp.AccessToken)
		require.NotEmpty(t, resp.RefreshToken)
		require.Equal(t, "Bearer", resp.TokenType)
		require.Equal(t, 900, resp.ExpiresIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "203.0.113.2",
			map[string]string{"email": testEmail, "password": "wrong"}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "203.0.113.3",
			map[string]string{"email": testEmail}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rate limited after repeated attempts", func(t *testing.T) {
		var last int
		for range 10 {
			rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "203.0.113.4",
				map[string]string{"email": testEmail, "password": "wrong"}, nil)
			last = rec.Code
		}
		require.Equal(t, http.StatusTooManyRequests, last)
	})
}

func TestMeEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	pair := login(t, r, "203.0.113.1")

	t.Run("with a valid token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "203.0.113.1", nil,
			map[string]string{"Authorization": "Bearer " + pair.AccessToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, testEmail, body["email"])
		require.Equal(t, "Test Reader", body["display_name"])
	})

	t.Run("session snapshot recorded", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "203.0.113.1", nil,
			map[string]string{"Authorization": "Bearer " + pair.AccessToken})
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "203.0.113.1", body["last_ip"])
	})

	t.Run("without a token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "203.0.113.1", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with a refresh token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "203.0.113.1", nil,
			map[string]string{"Authorization": "Bearer " + pair.RefreshToken})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	pair := login(t, r, "203.0.113.1")

	t.Run("valid refresh rotates the pair", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "203.0.113.1",
			map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var next authhttp.TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		t.Run("old refresh token is dead", func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "203.0.113.1",
				map[string]string{"refresh_token": pair.RefreshToken}, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "203.0.113.2",
			map[string]string{"refresh_token": "garbage"}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "203.0.113.3", nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	pair := login(t, r, "203.0.113.1")

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/logout", "203.0.113.1",
		map[string]string{"refresh_token": pair.RefreshToken},
		map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("access token is dead", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "203.0.113.1", nil,
			map[string]string{"Authorization": "Bearer " + pair.AccessToken})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token is dead", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "203.0.113.2",
			map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodGet, path, "203.0.113.1", nil, nil)
			require.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
