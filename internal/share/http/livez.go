package http

import (
	"net/http"
	"time"

	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
)

// LivezHandler always returns 200 while the process is running.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, sharesdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
