package sharesdk

// ErrorResponse is the standard error envelope returned by the share
// service.
type ErrorResponse struct {
	// Error is a short machine-readable code (e.g., "invalid_token",
	// "permission_denied")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is returned by the livez and readyz endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency status on the readyz endpoint.
type HealthChecks struct {
	Database string `json:"database"`
}

// MintShareRequest creates a share token for a resource. Leaving
// Recipient empty produces a link anyone can open.
type MintShareRequest struct {
	ResourceID int64  `json:"resource_id"`
	Recipient  string `json:"recipient,omitempty"`
}

// MintShareResponse carries the opaque share token.
type MintShareResponse struct {
	Token string `json:"token"`
}

// WidgetPayload is a widget served through a share link. DataToken is a
// widget-scoped share token for fetching the widget's rows.
type WidgetPayload struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ViewID    int64  `json:"view_id"`
	Config    string `json:"config"`
	DataToken string `json:"data_token"`
}

// SlidePayload is one page of a shared display.
type SlidePayload struct {
	ID    int64 `json:"id"`
	Index int   `json:"index"`
}

// SlideWidgetPayload places a widget on a slide.
type SlideWidgetPayload struct {
	SlideID  int64 `json:"slide_id"`
	WidgetID int64 `json:"widget_id"`
}

// DashboardWidgetPayload places a widget on a dashboard.
type DashboardWidgetPayload struct {
	WidgetID int64 `json:"widget_id"`
}

// ShareWidgetResponse is the body of GET /v1/share/widget.
type ShareWidgetResponse struct {
	Widget WidgetPayload `json:"widget"`
}

// ShareDisplayResponse is the body of GET /v1/share/display.
type ShareDisplayResponse struct {
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	Slides    []SlidePayload       `json:"slides"`
	Relations []SlideWidgetPayload `json:"relations"`
	Widgets   []WidgetPayload      `json:"widgets"`
}

// ShareDashboardResponse is the body of GET /v1/share/dashboard.
type ShareDashboardResponse struct {
	ID        int64                    `json:"id"`
	Name      string                   `json:"name"`
	Relations []DashboardWidgetPayload `json:"relations"`
	Widgets   []WidgetPayload          `json:"widgets"`
}

// DataRequest fetches one page of rows for a shared widget.
type DataRequest struct {
	Token    string            `json:"token"`
	Limit    int               `json:"limit,omitempty"`
	PageNo   int               `json:"page_no,omitempty"`
	PageSize int               `json:"page_size,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// DataResponse is one page of rows from a shared widget's view.
type DataResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	PageNo  int              `json:"page_no"`
	Total   int              `json:"total"`
}

// LoginRequest authenticates a caller against a restricted share.
type LoginRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a short-lived session token identifying the
// caller on subsequent share requests.
type LoginResponse struct {
	SessionToken string `json:"session_token"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
}

// InviteRequest invites a user into an organization.
type InviteRequest struct {
	OrgID     int64 `json:"org_id"`
	InviteeID int64 `json:"invitee_id"`
}

// InviteResponse carries the minted invitation token. The token is also
// emailed to the invitee.
type InviteResponse struct {
	Token string `json:"token"`
}

// ConfirmInviteRequest redeems an invitation token as the calling user.
type ConfirmInviteRequest struct {
	Token string `json:"token"`
}

// ConfirmInviteResponse reports the created membership.
type ConfirmInviteResponse struct {
	MembershipID int64 `json:"membership_id"`
	OrgID        int64 `json:"org_id"`
	UserID       int64 `json:"user_id"`
	Role         int16 `json:"role"`
}
