package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vizboard/vizboard/internal/share/data"
	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/internal/share/store/drivers/sqlite"
	"github.com/vizboard/vizboard/pkg/cryptox"
	"github.com/vizboard/vizboard/pkg/jwtx"
	"github.com/vizboard/vizboard/pkg/sharesdk"
)

type fixture struct {
	router *Router
	store  *sqlite.Store
	tokens *service.TokenService

	alice  domain.User
	bob    domain.User
	widget domain.Widget
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cipher, err := cryptox.NewAESCipher([]byte("router-test-cipher-key"))
	require.NoError(t, err)
	envelope, err := jwtx.NewEnvelope([]byte("router-test-envelope-secret"))
	require.NoError(t, err)
	sessions, err := jwtx.NewSessionSigner([]byte("router-test-session-secret"), "test", time.Minute)
	require.NoError(t, err)

	tokens := &service.TokenService{Store: st, Cipher: cipher, Envelope: envelope}

	f := &fixture{
		store:  st,
		tokens: tokens,
		alice:  seedUser(t, st, "alice", "pw-alice"),
		bob:    seedUser(t, st, "bob", "pw-bob"),
	}

	orgID, err := st.Organizations().CreateOrganization(ctx, domain.Organization{Name: "acme"})
	require.NoError(t, err)
	projectID, err := st.Projects().CreateProject(ctx, domain.Project{OrgID: orgID, Name: "metrics"})
	require.NoError(t, err)
	viewID, err := st.Views().CreateView(ctx, domain.View{ProjectID: projectID, Name: "revenue-view"})
	require.NoError(t, err)
	widgetID, err := st.Widgets().CreateWidget(ctx, domain.Widget{
		ProjectID: projectID,
		ViewID:    viewID,
		Name:      "revenue",
		Config:    "{}",
	})
	require.NoError(t, err)
	f.widget, err = st.Widgets().GetWidgetByID(ctx, widgetID)
	require.NoError(t, err)

	router := NewRouter(sessions, "test", st, slog.Default())
	router.TokenService = tokens
	router.ShareService = &service.ShareService{
		Store:  st,
		Tokens: tokens,
		Runner: data.NewRunner(st.DB()),
		CSVDir: t.TempDir(),
	}
	router.InviteService = &service.InviteService{Store: st, Tokens: tokens}
	router.ApplyRoutes()
	f.router = router

	return f
}

func seedUser(t *testing.T, st *sqlite.Store, username, password string) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	id, err := st.Users().CreateUser(ctx, domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Active:       true,
	})
	require.NoError(t, err)

	u, err := st.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health sharesdk.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)
}

func TestShareFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Restricted share from alice to bob, minted server-side.
	token, err := f.tokens.MintShareToken(ctx, f.widget.ID, f.alice.ID, f.bob.Username)
	require.NoError(t, err)

	t.Run("anonymous caller cannot open a restricted share", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/share/widget?token="+url.QueryEscape(token), "", nil)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	var session string
	t.Run("recipient logs in against the share", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/share/login", "", sharesdk.LoginRequest{
			Token:    token,
			Username: "bob",
			Password: "pw-bob",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.SessionToken)
		require.Equal(t, f.bob.ID, resp.UserID)
		session = resp.SessionToken
	})

	t.Run("session unlocks the shared widget", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/share/widget?token="+url.QueryEscape(token), session, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.ShareWidgetResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, f.widget.ID, resp.Widget.ID)
		require.NotEmpty(t, resp.Widget.DataToken)
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/share/login", "", sharesdk.LoginRequest{
			Token:    token,
			Username: "bob",
			Password: "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("broken token is a 400", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/share/widget?token=garbage", "", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp sharesdk.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "invalid_token", resp.Error)
	})

	t.Run("bad session token is rejected outright", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/share/widget?token="+url.QueryEscape(token), "not-a-jwt", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMintEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/shares/mint", "", sharesdk.MintShareRequest{ResourceID: f.widget.ID})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("mints for the authenticated issuer", func(t *testing.T) {
		anon, err := f.tokens.MintShareToken(ctx, f.widget.ID, f.alice.ID, "")
		require.NoError(t, err)

		loginW := f.do(t, http.MethodPost, "/v1/share/login", "", sharesdk.LoginRequest{
			Token:    anon,
			Username: "alice",
			Password: "pw-alice",
		})
		require.Equal(t, http.StatusOK, loginW.Code)
		var login sharesdk.LoginResponse
		require.NoError(t, json.Unmarshal(loginW.Body.Bytes(), &login))

		w := f.do(t, http.MethodPost, "/v1/shares/mint", login.SessionToken, sharesdk.MintShareRequest{
			ResourceID: f.widget.ID,
			Recipient:  "bob",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.MintShareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		info, err := f.tokens.ResolveShareToken(ctx, resp.Token, &f.bob)
		require.NoError(t, err)
		require.Equal(t, f.widget.ID, info.ResourceID)
		require.Equal(t, f.alice.ID, info.Issuer.ID)
	})
}

func TestInviteEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org, err := f.store.Organizations().CreateOrganization(ctx, domain.Organization{Name: "globex"})
	require.NoError(t, err)
	_, err = f.store.Memberships().CreateMembership(ctx, domain.OrganizationMembership{
		OrgID:  org,
		UserID: f.alice.ID,
		Role:   domain.OrgRoleOwner,
	})
	require.NoError(t, err)

	login := func(t *testing.T, username, password string) string {
		anon, err := f.tokens.MintShareToken(ctx, f.widget.ID, f.alice.ID, "")
		require.NoError(t, err)
		w := f.do(t, http.MethodPost, "/v1/share/login", "", sharesdk.LoginRequest{
			Token: anon, Username: username, Password: password,
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp sharesdk.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.SessionToken
	}

	aliceSession := login(t, "alice", "pw-alice")
	bobSession := login(t, "bob", "pw-bob")

	var invite string
	t.Run("owner invites bob", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/organizations/invite", aliceSession, sharesdk.InviteRequest{
			OrgID:     org,
			InviteeID: f.bob.ID,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.InviteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)
		invite = resp.Token
	})

	t.Run("bob confirms and joins once", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/invites/confirm", bobSession, sharesdk.ConfirmInviteRequest{Token: invite})
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.ConfirmInviteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, org, resp.OrgID)
		require.Equal(t, f.bob.ID, resp.UserID)

		// Second redemption conflicts.
		w = f.do(t, http.MethodPost, "/v1/invites/confirm", bobSession, sharesdk.ConfirmInviteRequest{Token: invite})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("emailed confirmation link redeems via GET", func(t *testing.T) {
		second, err := f.store.Organizations().CreateOrganization(ctx, domain.Organization{Name: "initech"})
		require.NoError(t, err)
		_, err = f.store.Memberships().CreateMembership(ctx, domain.OrganizationMembership{
			OrgID:  second,
			UserID: f.alice.ID,
			Role:   domain.OrgRoleOwner,
		})
		require.NoError(t, err)

		w := f.do(t, http.MethodPost, "/v1/organizations/invite", aliceSession, sharesdk.InviteRequest{
			OrgID:     second,
			InviteeID: f.bob.ID,
		})
		require.Equal(t, http.StatusOK, w.Code)
		var minted sharesdk.InviteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &minted))

		// Same shape as the link in the invitation mail.
		w = f.do(t, http.MethodGet, "/v1/invites/confirm?token="+url.QueryEscape(minted.Token), bobSession, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp sharesdk.ConfirmInviteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, second, resp.OrgID)
		require.Equal(t, f.bob.ID, resp.UserID)

		w = f.do(t, http.MethodGet, "/v1/invites/confirm", bobSession, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("existing members cannot be re-invited", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/organizations/invite", aliceSession, sharesdk.InviteRequest{
			OrgID:     org,
			InviteeID: f.alice.ID,
		})
		// Alice is already the owner, hence a member.
		require.Equal(t, http.StatusConflict, w.Code)
	})
}
