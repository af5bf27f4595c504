package http

import (
	"encoding/json"
	"net/http"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/service"
	"github.com/shelfmark/shelfmark/pkg/httpx"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

// RefreshHandler serves POST /v1/auth/refresh. The refresh token travels
// in the request body, never in the Authorization header.
type RefreshHandler struct {
	AuthService *service.AuthService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{Error: "invalid_request"})
		return
	}

	pair, err := h.AuthService.RefreshPair(ctx, req.RefreshToken, httpx.RequestMeta(r))
	if err != nil {
		if domain.IsTokenError(err) {
			// Which check failed is logged, never surfaced.
			log.Info("refresh rejected", "err", err)
			httpx.WriteUnauthorized(w)
			return
		}
		log.Error("refresh failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
