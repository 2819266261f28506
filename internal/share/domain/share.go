package domain

// RecipientBinding names the one user allowed to redeem a restricted
// share token. Nil binding means anyone holding the token may redeem.
type RecipientBinding struct {
	Username string
	UserID   int64
}

// ShareInfo is the validated result of resolving a share token: which
// resource was shared, who issued the share, and (optionally) who it
// was restricted to. It is rebuilt from persisted state on every
// resolution and discarded after one authorization decision.
type ShareInfo struct {
	ResourceID int64
	Issuer     User
	Recipient  *RecipientBinding
}

// Restricted reports whether the share names a designated recipient.
func (s ShareInfo) Restricted() bool { return s.Recipient != nil }

// ShareWidget is a widget served through a share link, carrying a
// freshly minted data token scoped to the same issuer and recipient so
// the client can fetch the widget's data independently.
type ShareWidget struct {
	Widget

	DataToken string
}

// ShareDisplay is a display served through a share link, with its
// slides, slide/widget relations, and per-widget data tokens.
type ShareDisplay struct {
	Display

	Slides    []DisplaySlide
	Relations []SlideWidget
	Widgets   []ShareWidget
}

// ShareDashboard is a dashboard served through a share link.
type ShareDashboard struct {
	Dashboard

	Relations []DashboardWidget
	Widgets   []ShareWidget
}

// DataQuery carries pagination for a shared data fetch. Zero values
// mean "service defaults"; negative values mean "no limit" and are only
// honored on the CSV export path.
type DataQuery struct {
	Limit    int
	PageNo   int
	PageSize int
	Params   map[string]string
}

// DataResult is one page of rows from a view execution.
type DataResult struct {
	Columns []string
	Rows    []map[string]any
	PageNo  int
	Total   int
}
