package http

import (
	"net/http"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
)

// ShareResourceHandler serves shared widgets, displays, and dashboards.
// All three read the token from the query string so share links stay
// plain URLs.
type ShareResourceHandler struct {
	ShareService *service.ShareService
	Caller       CallerFunc
}

func (h *ShareResourceHandler) HandleWidget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, caller, ok := h.tokenAndCaller(w, r)
	if !ok {
		return
	}

	sw, err := h.ShareService.GetShareWidget(ctx, token, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sharesdk.ShareWidgetResponse{
		Widget: widgetPayload(sw),
	})
}

func (h *ShareResourceHandler) HandleDisplay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, caller, ok := h.tokenAndCaller(w, r)
	if !ok {
		return
	}

	sd, err := h.ShareService.GetShareDisplay(ctx, token, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := sharesdk.ShareDisplayResponse{
		ID:        sd.ID,
		Name:      sd.Name,
		Slides:    make([]sharesdk.SlidePayload, 0, len(sd.Slides)),
		Relations: make([]sharesdk.SlideWidgetPayload, 0, len(sd.Relations)),
		Widgets:   make([]sharesdk.WidgetPayload, 0, len(sd.Widgets)),
	}
	for _, s := range sd.Slides {
		resp.Slides = append(resp.Slides, sharesdk.SlidePayload{ID: s.ID, Index: s.Index})
	}
	for _, rel := range sd.Relations {
		resp.Relations = append(resp.Relations, sharesdk.SlideWidgetPayload{
			SlideID:  rel.SlideID,
			WidgetID: rel.WidgetID,
		})
	}
	for _, sw := range sd.Widgets {
		resp.Widgets = append(resp.Widgets, widgetPayload(sw))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *ShareResourceHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, caller, ok := h.tokenAndCaller(w, r)
	if !ok {
		return
	}

	sd, err := h.ShareService.GetShareDashboard(ctx, token, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := sharesdk.ShareDashboardResponse{
		ID:        sd.ID,
		Name:      sd.Name,
		Relations: make([]sharesdk.DashboardWidgetPayload, 0, len(sd.Relations)),
		Widgets:   make([]sharesdk.WidgetPayload, 0, len(sd.Widgets)),
	}
	for _, rel := range sd.Relations {
		resp.Relations = append(resp.Relations, sharesdk.DashboardWidgetPayload{WidgetID: rel.WidgetID})
	}
	for _, sw := range sd.Widgets {
		resp.Widgets = append(resp.Widgets, widgetPayload(sw))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *ShareResourceHandler) tokenAndCaller(w http.ResponseWriter, r *http.Request) (string, *domain.User, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, sharesdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "token is required",
		})
		return "", nil, false
	}

	caller, err := h.Caller(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return "", nil, false
	}
	return token, caller, true
}

func widgetPayload(sw domain.ShareWidget) sharesdk.WidgetPayload {
	return sharesdk.WidgetPayload{
		ID:        sw.ID,
		Name:      sw.Name,
		ViewID:    sw.ViewID,
		Config:    sw.Config,
		DataToken: sw.DataToken,
	}
}
