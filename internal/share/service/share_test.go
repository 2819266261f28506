package service

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/pkg/cryptox"
)

// stubRunner records the last query it was asked to run and returns a
// canned result.
type stubRunner struct {
	lastView       domain.View
	lastQuery      domain.DataQuery
	lastMaintainer bool
	result         domain.DataResult
}

func (r *stubRunner) RunQuery(_ context.Context, view domain.View, q domain.DataQuery, maintainer bool) (domain.DataResult, error) {
	r.lastView = view
	r.lastQuery = q
	r.lastMaintainer = maintainer
	return r.result, nil
}

func newShareService(t *testing.T, e *env, runner *stubRunner) *ShareService {
	t.Helper()
	return &ShareService{
		Store:  e.store,
		Tokens: e.tokens,
		Runner: runner,
		CSVDir: t.TempDir(),
	}
}

func TestGetShareWidget(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	org := e.seedOrg(t, "acme")
	project := e.seedProject(t, org.ID, "metrics")
	widget := e.seedWidget(t, project.ID, "revenue")

	svc := newShareService(t, e, &stubRunner{})

	t.Run("serves widget with a fresh data token", func(t *testing.T) {
		token, err := e.tokens.MintShareToken(ctx, widget.ID, alice.ID, "")
		require.NoError(t, err)

		sw, err := svc.GetShareWidget(ctx, token, nil)
		require.NoError(t, err)
		require.Equal(t, widget.ID, sw.ID)
		require.Equal(t, "revenue", sw.Name)
		require.NotEmpty(t, sw.DataToken)
		require.NotEqual(t, token, sw.DataToken)

		info, err := e.tokens.ResolveShareToken(ctx, sw.DataToken, nil)
		require.NoError(t, err)
		require.Equal(t, widget.ID, info.ResourceID)
		require.Equal(t, alice.ID, info.Issuer.ID)
	})

	t.Run("missing widget maps to resource not found", func(t *testing.T) {
		token, err := e.tokens.MintShareToken(ctx, widget.ID+1000, alice.ID, "")
		require.NoError(t, err)

		_, err = svc.GetShareWidget(ctx, token, nil)
		require.ErrorIs(t, err, ErrResourceNotFound)
	})
}

func TestGetShareDisplay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	bob := e.seedUser(t, "bob", "pw-bob")
	carol := e.seedUser(t, "carol", "pw-carol")
	org := e.seedOrg(t, "acme")
	project := e.seedProject(t, org.ID, "metrics")

	w1 := e.seedWidget(t, project.ID, "revenue")
	w2 := e.seedWidget(t, project.ID, "churn")

	displayID, err := e.store.Displays().CreateDisplay(ctx, domain.Display{ProjectID: project.ID, Name: "quarterly"})
	require.NoError(t, err)
	slideID, err := e.store.Displays().CreateSlide(ctx, domain.DisplaySlide{DisplayID: displayID, Index: 0})
	require.NoError(t, err)
	for _, w := range []domain.Widget{w1, w2} {
		_, err = e.store.Displays().CreateSlideWidget(ctx, domain.SlideWidget{SlideID: slideID, WidgetID: w.ID})
		require.NoError(t, err)
	}

	svc := newShareService(t, e, &stubRunner{})

	token, err := e.tokens.MintShareToken(ctx, displayID, alice.ID, bob.Username)
	require.NoError(t, err)

	t.Run("recipient gets slides, relations, and widget tokens", func(t *testing.T) {
		sd, err := svc.GetShareDisplay(ctx, token, &bob)
		require.NoError(t, err)
		require.Equal(t, displayID, sd.ID)
		require.Len(t, sd.Slides, 1)
		require.Len(t, sd.Relations, 2)
		require.Len(t, sd.Widgets, 2)

		// Each widget token keeps the original issuer and recipient.
		for _, sw := range sd.Widgets {
			info, err := e.tokens.ResolveShareToken(ctx, sw.DataToken, &bob)
			require.NoError(t, err)
			require.Equal(t, sw.ID, info.ResourceID)
			require.Equal(t, alice.ID, info.Issuer.ID)
			require.True(t, info.Restricted())

			_, err = e.tokens.ResolveShareToken(ctx, sw.DataToken, &carol)
			require.ErrorIs(t, err, ErrPermissionDenied)
		}
	})

	t.Run("non-recipient is denied", func(t *testing.T) {
		_, err := svc.GetShareDisplay(ctx, token, &carol)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestGetShareDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	org := e.seedOrg(t, "acme")
	project := e.seedProject(t, org.ID, "metrics")
	widget := e.seedWidget(t, project.ID, "revenue")

	dashID, err := e.store.Dashboards().CreateDashboard(ctx, domain.Dashboard{ProjectID: project.ID, Name: "exec"})
	require.NoError(t, err)
	_, err = e.store.Dashboards().CreateDashboardWidget(ctx, domain.DashboardWidget{DashboardID: dashID, WidgetID: widget.ID})
	require.NoError(t, err)

	svc := newShareService(t, e, &stubRunner{})

	token, err := e.tokens.MintShareToken(ctx, dashID, alice.ID, "")
	require.NoError(t, err)

	sd, err := svc.GetShareDashboard(ctx, token, nil)
	require.NoError(t, err)
	require.Equal(t, dashID, sd.ID)
	require.Len(t, sd.Relations, 1)
	require.Len(t, sd.Widgets, 1)
	require.NotEmpty(t, sd.Widgets[0].DataToken)
}

func TestGetShareData(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	org := e.seedOrg(t, "acme")
	project := e.seedProject(t, org.ID, "metrics")
	widget := e.seedWidget(t, project.ID, "revenue")

	runner := &stubRunner{result: domain.DataResult{
		Columns: []string{"month", "total"},
		Rows:    []map[string]any{{"month": "jan", "total": 100}},
		Total:   1,
	}}
	svc := newShareService(t, e, runner)

	token, err := e.tokens.MintShareToken(ctx, widget.ID, alice.ID, "")
	require.NoError(t, err)

	t.Run("clamps pagination to service bounds", func(t *testing.T) {
		result, err := svc.GetShareData(ctx, token, domain.DataQuery{PageSize: 0, PageNo: 0, Limit: 1 << 20}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)

		require.Equal(t, widget.ViewID, runner.lastView.ID)
		require.Equal(t, maxSharePageSize, runner.lastQuery.PageSize)
		require.Equal(t, 1, runner.lastQuery.PageNo)
		require.Equal(t, maxSharePageSize, runner.lastQuery.Limit)
	})

	t.Run("issuer maintainer grant reaches the runner", func(t *testing.T) {
		require.NoError(t, e.store.Projects().UpsertProjectPermission(ctx, domain.ProjectPermission{
			ProjectID:  project.ID,
			UserID:     alice.ID,
			Maintainer: true,
		}))

		_, err := svc.GetShareData(ctx, token, domain.DataQuery{}, nil)
		require.NoError(t, err)
		require.True(t, runner.lastMaintainer)
	})

	t.Run("widget without a view is not found", func(t *testing.T) {
		orphan, err := e.tokens.MintShareToken(ctx, widget.ID+1000, alice.ID, "")
		require.NoError(t, err)

		_, err = svc.GetShareData(ctx, orphan, domain.DataQuery{}, nil)
		require.ErrorIs(t, err, ErrResourceNotFound)
	})
}

func TestGetShareDataCSV(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	org := e.seedOrg(t, "acme")
	project := e.seedProject(t, org.ID, "metrics")
	widget := e.seedWidget(t, project.ID, "revenue")

	runner := &stubRunner{result: domain.DataResult{
		Columns: []string{"month", "total"},
		Rows: []map[string]any{
			{"month": "jan", "total": 100},
			{"month": "feb", "total": 250},
		},
		Total: 2,
	}}
	svc := newShareService(t, e, runner)

	token, err := e.tokens.MintShareToken(ctx, widget.ID, alice.ID, "")
	require.NoError(t, err)

	t.Run("denied without a permission row", func(t *testing.T) {
		_, err := svc.GetShareDataCSV(ctx, token, domain.DataQuery{}, nil)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("denied when download is not granted", func(t *testing.T) {
		require.NoError(t, e.store.Projects().UpsertProjectPermission(ctx, domain.ProjectPermission{
			ProjectID: project.ID,
			UserID:    alice.ID,
			Download:  false,
		}))

		_, err := svc.GetShareDataCSV(ctx, token, domain.DataQuery{}, nil)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("exports all rows when download is granted", func(t *testing.T) {
		require.NoError(t, e.store.Projects().UpsertProjectPermission(ctx, domain.ProjectPermission{
			ProjectID: project.ID,
			UserID:    alice.ID,
			Download:  true,
		}))

		path, err := svc.GetShareDataCSV(ctx, token, domain.DataQuery{PageSize: 10}, nil)
		require.NoError(t, err)

		// Export lifts pagination entirely.
		require.Equal(t, -1, runner.lastQuery.Limit)
		require.Equal(t, -1, runner.lastQuery.PageSize)

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, []string{"month", "total"}, records[0])
		require.Equal(t, []string{"jan", "100"}, records[1])
		require.Equal(t, []string{"feb", "250"}, records[2])
	})
}

func TestShareLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.seedUser(t, "alice", "pw-alice")
	bob := e.seedUser(t, "bob", "pw-bob")
	e.seedUser(t, "carol", "pw-carol")

	svc := newShareService(t, e, &stubRunner{})

	restricted, err := e.tokens.MintShareToken(ctx, 9, alice.ID, bob.Username)
	require.NoError(t, err)

	t.Run("recipient logs in with correct password", func(t *testing.T) {
		user, err := svc.ShareLogin(ctx, restricted, "bob", "pw-bob")
		require.NoError(t, err)
		require.Equal(t, bob.ID, user.ID)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.ShareLogin(ctx, restricted, "bob", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username is rejected", func(t *testing.T) {
		_, err := svc.ShareLogin(ctx, restricted, "nobody", "pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("valid credentials of a non-recipient are denied", func(t *testing.T) {
		_, err := svc.ShareLogin(ctx, restricted, "carol", "pw-carol")
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("inactive users cannot log in", func(t *testing.T) {
		hash, err := cryptox.HashPassword("pw-dave")
		require.NoError(t, err)
		_, err = e.store.Users().CreateUser(ctx, domain.User{
			Username:     "dave",
			Email:        "dave@example.com",
			PasswordHash: hash,
			Active:       false,
		})
		require.NoError(t, err)

		token, err := e.tokens.MintShareToken(ctx, 9, alice.ID, "dave")
		require.NoError(t, err)

		_, err = svc.ShareLogin(ctx, token, "dave", "pw-dave")
		require.ErrorIs(t, err, ErrInactiveUser)
	})

	t.Run("broken token is rejected before credentials", func(t *testing.T) {
		_, err := svc.ShareLogin(ctx, "garbage", "bob", "pw-bob")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
