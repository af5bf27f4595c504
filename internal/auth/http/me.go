package http

import (
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/store"
	"github.com/shelfmark/shelfmark/pkg/httpx"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

// MeHandler serves GET /v1/me, the protected profile endpoint that
// exercises the full verification/rotation/tracking pipeline.
type MeHandler struct {
	Store store.Store
}

type meResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name,omitempty"`
	LastIP       string     `json:"last_ip,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principalID := httpx.PrincipalIDFromContext(ctx)
	if principalID == "" {
		httpx.WriteUnauthorized(w)
		return
	}

	p, err := h.Store.Principals().FindByID(ctx, principalID)
	if err != nil {
		log.Error("profile lookup failed", "principal_id", principalID, "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{Error: "server_error"})
		return
	}

	resp := meResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		LastIP:      p.Session.IP,
	}
	if !p.Session.LastActivity.IsZero() {
		t := p.Session.LastActivity
		resp.LastActivity = &t
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
