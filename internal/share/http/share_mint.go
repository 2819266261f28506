package http

import (
	"encoding/json"
	"net/http"

	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
)

type ShareMintHandler struct {
	TokenService *service.TokenService
	Caller       CallerFunc
}

func (h *ShareMintHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.Caller(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if caller == nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, sharesdk.ErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Minting a share requires a session",
		})
		return
	}

	var req sharesdk.MintShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	token, err := h.TokenService.MintShareToken(ctx, req.ResourceID, caller.ID, req.Recipient)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sharesdk.MintShareResponse{Token: token})
}
