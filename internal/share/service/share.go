package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/store"
	"github.com/vizboard/vizboard/pkg/cryptox"
	"github.com/vizboard/vizboard/pkg/idx"
	"github.com/vizboard/vizboard/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactiveUser       = errors.New("user is not active")
)

// Shared data fetches are clamped to this page size unless the CSV
// export path lifts the limit.
const maxSharePageSize = 1000

// ViewRunner executes a view's query against its data source. The SQL
// engine lives outside this service; shares only decide whether and how
// much a caller may fetch.
type ViewRunner interface {
	RunQuery(ctx context.Context, view domain.View, q domain.DataQuery, maintainer bool) (domain.DataResult, error)
}

// ShareService authorizes access to shared resources. A parsed token
// grants one resource; composite resources (displays, dashboards) fan
// out into freshly minted widget-level data tokens so the client can
// fetch each widget's data independently.
type ShareService struct {
	Store  store.Store
	Tokens *TokenService
	Runner ViewRunner

	// CSVDir is where generated CSV exports land.
	CSVDir string
}

// ShareLogin authenticates a named caller in the context of a share
// token. It exists for restricted shares: the recipient proves who they
// are with their password, without a full platform session.
func (s *ShareService) ShareLogin(
	ctx context.Context,
	token, username, password string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. The token must at least be structurally valid.
	identity, _, err := s.Tokens.open(token)
	if err != nil {
		return domain.User{}, err
	}
	if len(identity) < 2 {
		return domain.User{}, ErrInvalidToken
	}

	// 2. Authenticate the caller.
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch login user", slog.Any("error", err))
		return domain.User{}, err
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Warn("share login with wrong password", slog.String("username", username))
		return domain.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.User{}, ErrInactiveUser
	}

	// 3. For restricted tokens the authenticated user must be the
	// designated recipient or the issuer.
	if _, err := s.Tokens.ResolveShareToken(ctx, token, &user); err != nil {
		return domain.User{}, err
	}

	log.Debug("share login succeeded", slog.Int64("user_id", user.ID))
	return user, nil
}

// GetShareWidget serves a widget through a share link, with a fresh
// data token for fetching its rows.
func (s *ShareService) GetShareWidget(
	ctx context.Context,
	token string,
	caller *domain.User,
) (domain.ShareWidget, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.ResolveShareToken(ctx, token, caller)
	if err != nil {
		return domain.ShareWidget{}, err
	}
	if err := requireRecipient(info, caller); err != nil {
		return domain.ShareWidget{}, err
	}

	widget, err := s.Store.Widgets().GetWidgetByID(ctx, info.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShareWidget{}, ErrResourceNotFound
		}
		log.Error("failed to fetch widget", slog.Any("error", err))
		return domain.ShareWidget{}, err
	}

	shareWidgets, err := s.mintDataTokens(ctx, info, []domain.Widget{widget})
	if err != nil {
		return domain.ShareWidget{}, err
	}
	return shareWidgets[0], nil
}

// GetShareDisplay serves a display through a share link: its slides,
// slide/widget relations, and every owned widget with its own data
// token.
func (s *ShareService) GetShareDisplay(
	ctx context.Context,
	token string,
	caller *domain.User,
) (domain.ShareDisplay, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.ResolveShareToken(ctx, token, caller)
	if err != nil {
		return domain.ShareDisplay{}, err
	}
	if err := requireRecipient(info, caller); err != nil {
		return domain.ShareDisplay{}, err
	}

	display, err := s.Store.Displays().GetDisplayByID(ctx, info.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShareDisplay{}, ErrResourceNotFound
		}
		log.Error("failed to fetch display", slog.Any("error", err))
		return domain.ShareDisplay{}, err
	}

	slides, err := s.Store.Displays().GetSlidesByDisplayID(ctx, display.ID)
	if err != nil {
		return domain.ShareDisplay{}, err
	}
	relations, err := s.Store.Displays().GetSlideWidgetsByDisplayID(ctx, display.ID)
	if err != nil {
		return domain.ShareDisplay{}, err
	}
	widgets, err := s.Store.Widgets().GetWidgetsByDisplayID(ctx, display.ID)
	if err != nil {
		return domain.ShareDisplay{}, err
	}

	shareWidgets, err := s.mintDataTokens(ctx, info, widgets)
	if err != nil {
		return domain.ShareDisplay{}, err
	}

	return domain.ShareDisplay{
		Display:   display,
		Slides:    slides,
		Relations: relations,
		Widgets:   shareWidgets,
	}, nil
}

// GetShareDashboard serves a dashboard through a share link.
func (s *ShareService) GetShareDashboard(
	ctx context.Context,
	token string,
	caller *domain.User,
) (domain.ShareDashboard, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.ResolveShareToken(ctx, token, caller)
	if err != nil {
		return domain.ShareDashboard{}, err
	}
	if err := requireRecipient(info, caller); err != nil {
		return domain.ShareDashboard{}, err
	}

	dashboard, err := s.Store.Dashboards().GetDashboardByID(ctx, info.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShareDashboard{}, ErrResourceNotFound
		}
		log.Error("failed to fetch dashboard", slog.Any("error", err))
		return domain.ShareDashboard{}, err
	}

	relations, err := s.Store.Dashboards().GetDashboardWidgetsByDashboardID(ctx, dashboard.ID)
	if err != nil {
		return domain.ShareDashboard{}, err
	}
	widgets, err := s.Store.Widgets().GetWidgetsByDashboardID(ctx, dashboard.ID)
	if err != nil {
		return domain.ShareDashboard{}, err
	}

	shareWidgets, err := s.mintDataTokens(ctx, info, widgets)
	if err != nil {
		return domain.ShareDashboard{}, err
	}

	return domain.ShareDashboard{
		Dashboard: dashboard,
		Relations: relations,
		Widgets:   shareWidgets,
	}, nil
}

// GetShareData fetches one page of rows for a shared widget's view.
// Pagination is clamped; unlimited fetches are reserved for the CSV
// export path.
func (s *ShareService) GetShareData(
	ctx context.Context,
	token string,
	q domain.DataQuery,
	caller *domain.User,
) (domain.DataResult, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.ResolveShareToken(ctx, token, caller)
	if err != nil {
		return domain.DataResult{}, err
	}
	if err := requireRecipient(info, caller); err != nil {
		return domain.DataResult{}, err
	}

	view, err := s.Store.Views().GetViewByWidgetID(ctx, info.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DataResult{}, ErrResourceNotFound
		}
		log.Error("failed to resolve view for widget", slog.Any("error", err))
		return domain.DataResult{}, err
	}

	// Clamp pagination: shares never stream unbounded result sets.
	if q.PageSize < 1 || q.PageSize > maxSharePageSize {
		q.PageSize = maxSharePageSize
	}
	if q.PageNo < 1 {
		q.PageNo = 1
	}
	if q.Limit < 0 || q.Limit > maxSharePageSize {
		q.Limit = maxSharePageSize
	}

	maintainer := s.isMaintainer(ctx, view.ProjectID, info.Issuer.ID)
	return s.Runner.RunQuery(ctx, view, q, maintainer)
}

// GetShareDataCSV exports the full result set of a shared widget's view
// to a CSV file and returns its path. Requires the issuer's download
// permission on the owning project; unlike GetShareData no row limit is
// applied.
func (s *ShareService) GetShareDataCSV(
	ctx context.Context,
	token string,
	q domain.DataQuery,
	caller *domain.User,
) (string, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.ResolveShareToken(ctx, token, caller)
	if err != nil {
		return "", err
	}
	if err := requireRecipient(info, caller); err != nil {
		return "", err
	}

	view, err := s.Store.Views().GetViewByWidgetID(ctx, info.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrResourceNotFound
		}
		log.Error("failed to resolve view for widget", slog.Any("error", err))
		return "", err
	}

	// Download is a project-level grant on the issuer, not something
	// the token itself can confer.
	perm, err := s.Store.Projects().GetProjectPermission(ctx, view.ProjectID, info.Issuer.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrPermissionDenied
		}
		log.Error("failed to fetch project permission", slog.Any("error", err))
		return "", err
	}
	if !perm.Download {
		log.Warn("csv export denied: issuer lacks download permission",
			slog.Int64("project_id", view.ProjectID),
			slog.Int64("issuer_id", info.Issuer.ID),
		)
		return "", ErrPermissionDenied
	}

	// Lift pagination entirely for the export.
	q.Limit = -1
	q.PageSize = -1
	q.PageNo = -1

	result, err := s.Runner.RunQuery(ctx, view, q, perm.Maintainer)
	if err != nil {
		return "", err
	}

	return s.writeCSV(view, result)
}

// mintDataTokens maps a widget set to share widgets, each carrying a
// fresh widget-scoped data token bound to the same issuer and
// recipient. This is the one place the protocol composes tokens
// recursively; every child token stands alone.
func (s *ShareService) mintDataTokens(
	ctx context.Context,
	info domain.ShareInfo,
	widgets []domain.Widget,
) ([]domain.ShareWidget, error) {
	recipient := ""
	if info.Restricted() {
		recipient = info.Recipient.Username
	}

	out := make([]domain.ShareWidget, 0, len(widgets))
	for _, w := range widgets {
		dataToken, err := s.Tokens.MintShareToken(ctx, w.ID, info.Issuer.ID, recipient)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ShareWidget{Widget: w, DataToken: dataToken})
	}
	return out, nil
}

// requireRecipient re-checks the recipient binding against the actual
// caller. ResolveShareToken already enforced it; doing it again here
// keeps the authorizer correct even if a caller identity is swapped
// between parse and use.
func requireRecipient(info domain.ShareInfo, caller *domain.User) error {
	if !info.Restricted() {
		return nil
	}
	if caller == nil {
		return ErrPermissionDenied
	}
	if caller.Username != info.Recipient.Username && caller.ID != info.Issuer.ID {
		return ErrPermissionDenied
	}
	return nil
}

func (s *ShareService) isMaintainer(ctx context.Context, projectID, userID int64) bool {
	perm, err := s.Store.Projects().GetProjectPermission(ctx, projectID, userID)
	if err != nil {
		return false
	}
	return perm.Maintainer
}

func (s *ShareService) writeCSV(view domain.View, result domain.DataResult) (string, error) {
	if err := os.MkdirAll(s.CSVDir, 0o750); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%s.csv",
		view.Name, time.Now().UTC().Format("20060102"), idx.New())
	path := filepath.Join(s.CSVDir, name)

	f, err := os.Create(path) // #nosec G304 - path is built from our own dir and a ULID
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		return "", err
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, col := range result.Columns {
			record[i] = fmt.Sprint(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
