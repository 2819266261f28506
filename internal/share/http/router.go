package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/internal/share/store"
	"github.com/vizboard/vizboard/pkg/httpx"
	"github.com/vizboard/vizboard/pkg/jwtx"
	"github.com/vizboard/vizboard/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessions     *jwtx.SessionSigner
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService  *service.TokenService
	ShareService  *service.ShareService
	InviteService *service.InviteService
}

func NewRouter(
	sessions *jwtx.SessionSigner,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.OptionalSession(r.sessions),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerShares()
	r.registerInvites()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerShares() {
	mintHandler := &ShareMintHandler{TokenService: r.TokenService, Caller: r.caller}
	resourceHandler := &ShareResourceHandler{ShareService: r.ShareService, Caller: r.caller}
	dataHandler := &ShareDataHandler{ShareService: r.ShareService, Caller: r.caller}
	loginHandler := &ShareLoginHandler{ShareService: r.ShareService, Sessions: r.sessions}

	r.Mux.Handle("POST /v1/shares/mint", mintHandler)

	r.Mux.HandleFunc("GET /v1/share/widget", resourceHandler.HandleWidget)
	r.Mux.HandleFunc("GET /v1/share/display", resourceHandler.HandleDisplay)
	r.Mux.HandleFunc("GET /v1/share/dashboard", resourceHandler.HandleDashboard)

	r.Mux.HandleFunc("POST /v1/share/data", dataHandler.HandleData)
	r.Mux.HandleFunc("POST /v1/share/data/csv", dataHandler.HandleCSV)

	r.Mux.Handle("POST /v1/share/login", loginHandler)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{InviteService: r.InviteService, Caller: r.caller}

	r.Mux.HandleFunc("POST /v1/organizations/invite", h.HandleInvite)
	r.Mux.HandleFunc("POST /v1/invites/confirm", h.HandleConfirm)
	r.Mux.HandleFunc("GET /v1/invites/confirm", h.HandleConfirm)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}

// caller resolves the authenticated user from the request context. nil
// with no error means the request is anonymous.
func (r *Router) caller(ctx context.Context) (*domain.User, error) {
	userID, _, ok := httpx.CallerFromContext(ctx)
	if !ok {
		return nil, nil
	}

	user, err := r.store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session outlived the account.
			return nil, service.ErrPermissionDenied
		}
		slogx.FromContext(ctx).Error("failed to resolve caller", slog.Any("error", err))
		return nil, err
	}
	if !user.Active {
		return nil, service.ErrPermissionDenied
	}
	return &user, nil
}

// CallerFunc resolves the request's authenticated user, if any.
type CallerFunc func(ctx context.Context) (*domain.User, error)
