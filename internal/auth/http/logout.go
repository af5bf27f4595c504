package http

import (
	"encoding/json"
	"net/http"

	"github.com/shelfmark/shelfmark/internal/auth/service"
	"github.com/shelfmark/shelfmark/pkg/httpx"
)

// LogoutHandler serves POST /v1/auth/logout. Runs behind the authn
// middleware; revokes the presented access token and, when supplied, the
// refresh token.
type LogoutHandler struct {
	AuthService *service.AuthService
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req logoutRequest
	// Body is optional; logout without it still kills the access token.
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.AuthService.Logout(ctx, id, req.RefreshToken)

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
