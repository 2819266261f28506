package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/jwtx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
	"github.com/vizboard/vizboard/pkg/slogx"
)

type ShareLoginHandler struct {
	ShareService *service.ShareService
	Sessions     *jwtx.SessionSigner
}

func (h *ShareLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sharesdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if req.Token == "" || req.Username == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "token, username and password are required",
		})
		return
	}

	user, err := h.ShareService.ShareLogin(ctx, req.Token, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.Sessions.Sign(user.ID, user.Username, time.Now())
	if err != nil {
		log.Error("failed to sign session token", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, sharesdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to create session",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sharesdk.LoginResponse{
		SessionToken: session,
		UserID:       user.ID,
		Username:     user.Username,
	})
}
