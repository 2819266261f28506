package store

import (
	"context"
	"errors"

	"github.com/vizboard/vizboard/internal/share/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// mysql) implement this. Sub-repositories keep concerns tidy; the Tx
// variants exist so multi-step mutations like invite acceptance stay
// atomic.
type Store interface {
	Users() Users
	Organizations() Organizations
	Memberships() Memberships
	Projects() Projects
	Views() Views
	Widgets() Widgets
	Displays() Displays
	Dashboards() Dashboards

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error
	// the transaction is rolled back, otherwise it is committed. This
	// is the recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by numeric id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByUsername resolves share recipients and login names.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user and returns the assigned id.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps
	// updated_at. Changing it invalidates outstanding invite tokens
	// minted against the old hash.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error
}

type Organizations interface {
	GetOrganizationByID(ctx context.Context, id int64) (domain.Organization, error)

	CreateOrganization(ctx context.Context, o domain.Organization) (int64, error)

	// IncrementMemberCount bumps member_count by one. Called inside the
	// same transaction that inserts the membership row.
	IncrementMemberCount(ctx context.Context, orgID int64) error
}

type Memberships interface {
	// GetMembership returns the membership row for a user in an org.
	GetMembership(ctx context.Context, userID, orgID int64) (domain.OrganizationMembership, error)

	// CreateMembership inserts a membership row. The unique
	// (org_id, user_id) constraint surfaces as ErrAlreadyExists so
	// concurrent invite acceptances cannot double-insert.
	CreateMembership(ctx context.Context, m domain.OrganizationMembership) (int64, error)
}

type Projects interface {
	GetProjectByID(ctx context.Context, id int64) (domain.Project, error)

	CreateProject(ctx context.Context, p domain.Project) (int64, error)

	// GetProjectPermission returns the resolved permission set for a
	// user within a project, ErrNotFound if the user has none.
	GetProjectPermission(ctx context.Context, projectID, userID int64) (domain.ProjectPermission, error)

	// UpsertProjectPermission writes a user's permission row.
	UpsertProjectPermission(ctx context.Context, p domain.ProjectPermission) error
}

type Views interface {
	GetViewByID(ctx context.Context, id int64) (domain.View, error)

	// GetViewByWidgetID resolves the view behind a shared widget for
	// data fetches.
	GetViewByWidgetID(ctx context.Context, widgetID int64) (domain.View, error)

	CreateView(ctx context.Context, v domain.View) (int64, error)
}

type Widgets interface {
	GetWidgetByID(ctx context.Context, id int64) (domain.Widget, error)

	// GetWidgetsByDisplayID returns the widgets owned by a display
	// through its slides.
	GetWidgetsByDisplayID(ctx context.Context, displayID int64) ([]domain.Widget, error)

	// GetWidgetsByDashboardID returns the widgets placed on a dashboard.
	GetWidgetsByDashboardID(ctx context.Context, dashboardID int64) ([]domain.Widget, error)

	CreateWidget(ctx context.Context, w domain.Widget) (int64, error)
}

type Displays interface {
	GetDisplayByID(ctx context.Context, id int64) (domain.Display, error)

	GetSlidesByDisplayID(ctx context.Context, displayID int64) ([]domain.DisplaySlide, error)

	// GetSlideWidgetsByDisplayID returns the slide/widget relations for
	// all slides of a display.
	GetSlideWidgetsByDisplayID(ctx context.Context, displayID int64) ([]domain.SlideWidget, error)

	CreateDisplay(ctx context.Context, d domain.Display) (int64, error)
	CreateSlide(ctx context.Context, s domain.DisplaySlide) (int64, error)
	CreateSlideWidget(ctx context.Context, sw domain.SlideWidget) (int64, error)
}

type Dashboards interface {
	GetDashboardByID(ctx context.Context, id int64) (domain.Dashboard, error)

	GetDashboardWidgetsByDashboardID(ctx context.Context, dashboardID int64) ([]domain.DashboardWidget, error)

	CreateDashboard(ctx context.Context, d domain.Dashboard) (int64, error)
	CreateDashboardWidget(ctx context.Context, dw domain.DashboardWidget) (int64, error)
}
