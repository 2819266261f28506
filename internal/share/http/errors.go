package http

import (
	"errors"
	"net/http"

	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
	"github.com/vizboard/vizboard/pkg/slogx"
)

// writeServiceError maps service sentinels onto the HTTP error
// envelope. Unknown errors are logged and surfaced as 500s.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request parameters are invalid",
		})
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_token",
			ErrorDescription: "Share token is invalid or corrupted",
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, sharesdk.ErrorResponse{
			Error:            "invalid_credentials",
			ErrorDescription: "Username or password is incorrect",
		})
	case errors.Is(err, service.ErrPermissionDenied):
		httpx.WriteJSON(w, http.StatusForbidden, sharesdk.ErrorResponse{
			Error:            "permission_denied",
			ErrorDescription: "You are not allowed to access this resource",
		})
	case errors.Is(err, service.ErrInactiveUser):
		httpx.WriteJSON(w, http.StatusForbidden, sharesdk.ErrorResponse{
			Error:            "inactive_user",
			ErrorDescription: "User account is not active",
		})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrResourceNotFound),
		errors.Is(err, service.ErrOrganizationNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, sharesdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "The requested resource does not exist",
		})
	case errors.Is(err, service.ErrAlreadyJoined):
		httpx.WriteJSON(w, http.StatusConflict, sharesdk.ErrorResponse{
			Error:            "already_joined",
			ErrorDescription: "User is already a member of the organization",
		})
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, sharesdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Internal server error",
		})
	}
}
