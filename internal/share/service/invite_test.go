package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/pkg/cryptox"
)

// recordingMailer captures invite deliveries.
type recordingMailer struct {
	sent []sentInvite
	fail bool
}

type sentInvite struct {
	to    string
	token string
}

func (m *recordingMailer) SendInvite(_ context.Context, to string, _ domain.Organization, _ domain.User, token string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentInvite{to: to, token: token})
	return nil
}

func TestInviteMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.seedUser(t, "alice", "pw-alice")
	member := e.seedUser(t, "bob", "pw-bob")
	outsider := e.seedUser(t, "carol", "pw-carol")
	org := e.seedOrg(t, "acme")
	e.seedMembership(t, owner.ID, org.ID, domain.OrgRoleOwner)
	e.seedMembership(t, member.ID, org.ID, domain.OrgRoleMember)

	mailer := &recordingMailer{}
	svc := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: mailer}

	t.Run("owner invites an outsider", func(t *testing.T) {
		token, err := svc.InviteMember(ctx, owner.ID, outsider.ID, org.ID)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		require.Len(t, mailer.sent, 1)
		require.Equal(t, outsider.Email, mailer.sent[0].to)
		require.Equal(t, token, mailer.sent[0].token)

		claims, err := e.tokens.resolveInviteToken(ctx, token)
		require.NoError(t, err)
		require.Equal(t, owner.ID, claims.InviterID)
		require.Equal(t, outsider.ID, claims.InviteeID)
		require.Equal(t, org.ID, claims.OrgID)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := svc.InviteMember(ctx, owner.ID, outsider.ID, org.ID+1000)
		require.ErrorIs(t, err, ErrOrganizationNotFound)
	})

	t.Run("unknown invitee", func(t *testing.T) {
		_, err := svc.InviteMember(ctx, owner.ID, outsider.ID+1000, org.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("plain members cannot invite", func(t *testing.T) {
		_, err := svc.InviteMember(ctx, member.ID, outsider.ID, org.ID)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("non-members cannot invite", func(t *testing.T) {
		_, err := svc.InviteMember(ctx, outsider.ID, member.ID, org.ID)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("existing members cannot be re-invited", func(t *testing.T) {
		_, err := svc.InviteMember(ctx, owner.ID, member.ID, org.ID)
		require.ErrorIs(t, err, ErrAlreadyJoined)
	})

	t.Run("delivery failure does not void the token", func(t *testing.T) {
		failing := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: &recordingMailer{fail: true}}
		token, err := failing.InviteMember(ctx, owner.ID, outsider.ID, org.ID)
		require.NoError(t, err)
		require.NotEmpty(t, token)
	})
}

func TestConfirmInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.seedUser(t, "alice", "pw-alice")
	invitee := e.seedUser(t, "bob", "pw-bob")
	stranger := e.seedUser(t, "carol", "pw-carol")
	org := e.seedOrg(t, "acme")
	e.seedMembership(t, owner.ID, org.ID, domain.OrgRoleOwner)

	svc := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: &recordingMailer{}}

	token, err := svc.InviteMember(ctx, owner.ID, invitee.ID, org.ID)
	require.NoError(t, err)

	t.Run("only the invitee may redeem", func(t *testing.T) {
		_, err := svc.ConfirmInvite(ctx, token, stranger)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("broken token", func(t *testing.T) {
		_, err := svc.ConfirmInvite(ctx, "garbage", invitee)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("invitee joins exactly once", func(t *testing.T) {
		before, err := e.store.Organizations().GetOrganizationByID(ctx, org.ID)
		require.NoError(t, err)

		m, err := svc.ConfirmInvite(ctx, token, invitee)
		require.NoError(t, err)
		require.NotZero(t, m.ID)
		require.Equal(t, org.ID, m.OrgID)
		require.Equal(t, invitee.ID, m.UserID)
		require.Equal(t, domain.OrgRoleMember, m.Role)

		after, err := e.store.Organizations().GetOrganizationByID(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, before.MemberCount+1, after.MemberCount)

		// Redeeming the same token again must not double-insert.
		_, err = svc.ConfirmInvite(ctx, token, invitee)
		require.ErrorIs(t, err, ErrAlreadyJoined)

		again, err := e.store.Organizations().GetOrganizationByID(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, after.MemberCount, again.MemberCount)
	})
}

func TestConfirmInviteConcurrentRedemptions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.seedUser(t, "alice", "pw-alice")
	invitee := e.seedUser(t, "bob", "pw-bob")
	org := e.seedOrg(t, "acme")
	e.seedMembership(t, owner.ID, org.ID, domain.OrgRoleOwner)

	svc := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: &recordingMailer{}}
	token, err := svc.InviteMember(ctx, owner.ID, invitee.ID, org.ID)
	require.NoError(t, err)

	before, err := e.store.Organizations().GetOrganizationByID(ctx, org.ID)
	require.NoError(t, err)

	const redeemers = 8
	errs := make(chan error, redeemers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.ConfirmInvite(ctx, token, invitee)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var joined, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, ErrAlreadyJoined):
			conflicts++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}
	require.Equal(t, 1, joined)
	require.Equal(t, redeemers-1, conflicts)

	m, err := e.store.Memberships().GetMembership(ctx, invitee.ID, org.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrgRoleMember, m.Role)

	after, err := e.store.Organizations().GetOrganizationByID(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, before.MemberCount+1, after.MemberCount)
}

func TestConfirmInviteRevalidatesLiveState(t *testing.T) {
	ctx := context.Background()

	t.Run("password change voids outstanding invites", func(t *testing.T) {
		e := newEnv(t)
		owner := e.seedUser(t, "alice", "pw-alice")
		invitee := e.seedUser(t, "bob", "pw-bob")
		org := e.seedOrg(t, "acme")
		e.seedMembership(t, owner.ID, org.ID, domain.OrgRoleOwner)

		svc := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: &recordingMailer{}}
		token, err := svc.InviteMember(ctx, owner.ID, invitee.ID, org.ID)
		require.NoError(t, err)

		newHash, err := cryptox.HashPassword("pw-rotated")
		require.NoError(t, err)
		require.NoError(t, e.store.Users().UpdatePasswordHash(ctx, invitee.ID, newHash))

		fresh, err := e.store.Users().GetUserByID(ctx, invitee.ID)
		require.NoError(t, err)

		_, err = svc.ConfirmInvite(ctx, token, fresh)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("inviter losing ownership voids their invites", func(t *testing.T) {
		e := newEnv(t)
		owner := e.seedUser(t, "alice", "pw-alice")
		invitee := e.seedUser(t, "bob", "pw-bob")
		org := e.seedOrg(t, "acme")

		// Seed ownership, mint, then recreate the org without it.
		e.seedMembership(t, owner.ID, org.ID, domain.OrgRoleOwner)
		svc := &InviteService{Store: e.store, Tokens: e.tokens, Mailer: &recordingMailer{}}
		token, err := svc.InviteMember(ctx, owner.ID, invitee.ID, org.ID)
		require.NoError(t, err)

		otherOrg := e.seedOrg(t, "other")
		demoted, err := e.tokens.MintInviteToken(ctx, owner.ID, invitee.ID, otherOrg.ID)
		require.NoError(t, err)

		// Owner never held otherOrg, so the second token is dead on
		// arrival; the first one still works.
		_, err = svc.ConfirmInvite(ctx, demoted, invitee)
		require.ErrorIs(t, err, ErrPermissionDenied)

		_, err = svc.ConfirmInvite(ctx, token, invitee)
		require.NoError(t, err)
	})
}
