package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/store"
	"github.com/vizboard/vizboard/internal/share/store/drivers/sqlite"
	"github.com/vizboard/vizboard/pkg/cryptox"
	"github.com/vizboard/vizboard/pkg/jwtx"
)

// env wires a real sqlite store and a token service for service tests.
type env struct {
	store  store.Store
	tokens *TokenService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cipher, err := cryptox.NewAESCipher([]byte("service-test-cipher-key"))
	require.NoError(t, err)

	envelope, err := jwtx.NewEnvelope([]byte("service-test-envelope-secret"))
	require.NoError(t, err)

	return &env{
		store:  st,
		tokens: &TokenService{Store: st, Cipher: cipher, Envelope: envelope},
	}
}

func (e *env) seedUser(t *testing.T, username, password string) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Active:       true,
	}
	id, err := e.store.Users().CreateUser(ctx, u)
	require.NoError(t, err)

	u, err = e.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	return u
}

func (e *env) seedOrg(t *testing.T, name string) domain.Organization {
	t.Helper()
	ctx := context.Background()

	id, err := e.store.Organizations().CreateOrganization(ctx, domain.Organization{Name: name})
	require.NoError(t, err)

	org, err := e.store.Organizations().GetOrganizationByID(ctx, id)
	require.NoError(t, err)
	return org
}

func (e *env) seedMembership(t *testing.T, userID, orgID int64, role int16) {
	t.Helper()
	_, err := e.store.Memberships().CreateMembership(context.Background(), domain.OrganizationMembership{
		OrgID:  orgID,
		UserID: userID,
		Role:   role,
	})
	require.NoError(t, err)
}

func (e *env) seedProject(t *testing.T, orgID int64, name string) domain.Project {
	t.Helper()
	ctx := context.Background()

	id, err := e.store.Projects().CreateProject(ctx, domain.Project{OrgID: orgID, Name: name})
	require.NoError(t, err)

	p, err := e.store.Projects().GetProjectByID(ctx, id)
	require.NoError(t, err)
	return p
}

// seedWidget creates a view and a widget on top of it.
func (e *env) seedWidget(t *testing.T, projectID int64, name string) domain.Widget {
	t.Helper()
	ctx := context.Background()

	viewID, err := e.store.Views().CreateView(ctx, domain.View{ProjectID: projectID, Name: name + "-view"})
	require.NoError(t, err)

	id, err := e.store.Widgets().CreateWidget(ctx, domain.Widget{
		ProjectID: projectID,
		ViewID:    viewID,
		Name:      name,
		Config:    "{}",
	})
	require.NoError(t, err)

	w, err := e.store.Widgets().GetWidgetByID(ctx, id)
	require.NoError(t, err)
	return w
}
