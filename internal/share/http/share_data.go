package http

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
)

// ShareDataHandler serves row data for shared widgets, paged as JSON or
// exported whole as CSV.
type ShareDataHandler struct {
	ShareService *service.ShareService
	Caller       CallerFunc
}

func (h *ShareDataHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, caller, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.ShareService.GetShareData(ctx, req.Token, domain.DataQuery{
		Limit:    req.Limit,
		PageNo:   req.PageNo,
		PageSize: req.PageSize,
		Params:   req.Params,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sharesdk.DataResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		PageNo:  result.PageNo,
		Total:   result.Total,
	})
}

func (h *ShareDataHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, caller, ok := h.decode(w, r)
	if !ok {
		return
	}

	path, err := h.ShareService.GetShareDataCSV(ctx, req.Token, domain.DataQuery{
		Params: req.Params,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (h *ShareDataHandler) decode(w http.ResponseWriter, r *http.Request) (sharesdk.DataRequest, *domain.User, bool) {
	var req sharesdk.DataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return sharesdk.DataRequest{}, nil, false
	}
	if req.Token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "token is required",
		})
		return sharesdk.DataRequest{}, nil, false
	}

	caller, err := h.Caller(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return sharesdk.DataRequest{}, nil, false
	}
	return req, caller, true
}
