// Package sharesdk is a small client for the share service. It wraps
// the HTTP surface with typed requests and responses; the token strings
// themselves stay opaque.
package sharesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded into the service's error
// envelope.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sharesdk: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// SDKClient is a client for the share service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// SessionToken, when set, is sent as a Bearer token so restricted
	// shares recognize the caller. Obtain one via ShareLogin.
	SessionToken string
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// MintShare creates a share token for a resource. Requires a session.
func (c *SDKClient) MintShare(ctx context.Context, req MintShareRequest) (MintShareResponse, error) {
	var out MintShareResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/shares/mint", req, &out)
	return out, err
}

// GetSharedWidget fetches a widget through a share token.
func (c *SDKClient) GetSharedWidget(ctx context.Context, token string) (ShareWidgetResponse, error) {
	var out ShareWidgetResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/share/widget?token="+url.QueryEscape(token), nil, &out)
	return out, err
}

// GetSharedDisplay fetches a display through a share token.
func (c *SDKClient) GetSharedDisplay(ctx context.Context, token string) (ShareDisplayResponse, error) {
	var out ShareDisplayResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/share/display?token="+url.QueryEscape(token), nil, &out)
	return out, err
}

// GetSharedDashboard fetches a dashboard through a share token.
func (c *SDKClient) GetSharedDashboard(ctx context.Context, token string) (ShareDashboardResponse, error) {
	var out ShareDashboardResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/share/dashboard?token="+url.QueryEscape(token), nil, &out)
	return out, err
}

// GetShareData fetches one page of rows for a shared widget.
func (c *SDKClient) GetShareData(ctx context.Context, req DataRequest) (DataResponse, error) {
	var out DataResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/share/data", req, &out)
	return out, err
}

// ShareLogin authenticates against a restricted share and stores the
// returned session token on the client.
func (c *SDKClient) ShareLogin(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/share/login", req, &out); err != nil {
		return LoginResponse{}, err
	}
	c.SessionToken = out.SessionToken
	return out, nil
}

// InviteMember invites a user into an organization. Requires a session.
func (c *SDKClient) InviteMember(ctx context.Context, req InviteRequest) (InviteResponse, error) {
	var out InviteResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/organizations/invite", req, &out)
	return out, err
}

// ConfirmInvite redeems an invitation token. Requires a session.
func (c *SDKClient) ConfirmInvite(ctx context.Context, req ConfirmInviteRequest) (ConfirmInviteResponse, error) {
	var out ConfirmInviteResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/invites/confirm", req, &out)
	return out, err
}

func (c *SDKClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.SessionToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Code: "unknown_error"}
		}
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        apiErr.Error,
			Description: apiErr.ErrorDescription,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
