package domain

import "time"

// Project groups the dashboard resources and carries per-user
// permissions. Only the permission lookup matters to this service; the
// CRUD surface for projects lives elsewhere.
type Project struct {
	ID        int64
	OrgID     int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectPermission is a user's resolved permission set within a
// project. Download gates CSV export of shared data.
type ProjectPermission struct {
	ProjectID  int64
	UserID     int64
	Maintainer bool
	Download   bool
}

// View is a saved query over a data source. Widgets visualize views.
// Query is authored by project maintainers and treated as trusted SQL.
type View struct {
	ID        int64
	ProjectID int64
	Name      string
	Query     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Widget struct {
	ID        int64
	ProjectID int64
	ViewID    int64
	Name      string
	Config    string // JSON widget configuration, opaque to this service
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Display struct {
	ID        int64
	ProjectID int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplaySlide is one page of a display; slides own widgets through
// SlideWidget relations.
type DisplaySlide struct {
	ID        int64
	DisplayID int64
	Index     int
	CreatedAt time.Time
}

// SlideWidget places a widget on a display slide.
type SlideWidget struct {
	ID       int64
	SlideID  int64
	WidgetID int64
}

type Dashboard struct {
	ID        int64
	ProjectID int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DashboardWidget places a widget on a dashboard.
type DashboardWidget struct {
	ID          int64
	DashboardID int64
	WidgetID    int64
}
