package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/store"
	"github.com/vizboard/vizboard/pkg/slogx"
)

var ErrAlreadyJoined = errors.New("user is already a member of the organization")

// Mailer delivers invitation emails. Delivery failures do not void the
// minted token; the invite link can still be forwarded out of band.
type Mailer interface {
	SendInvite(ctx context.Context, to string, org domain.Organization, inviter domain.User, token string) error
}

// InviteService mints and redeems organization invitations. An invite
// token is bound to the invitee's credentials at mint time, so changing
// their password voids every invitation still in flight.
type InviteService struct {
	Store  store.Store
	Tokens *TokenService
	Mailer Mailer
}

// InviteMember invites a user into an organization. Only a current
// owner may invite; the minted token is emailed to the invitee.
func (s *InviteService) InviteMember(
	ctx context.Context,
	inviterID, inviteeID, orgID int64,
) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. The organization must exist.
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrOrganizationNotFound
		}
		log.Error("failed to fetch organization", slog.Any("error", err))
		return "", err
	}

	// 2. Resolve both parties.
	inviter, err := s.Store.Users().GetUserByID(ctx, inviterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	invitee, err := s.Store.Users().GetUserByID(ctx, inviteeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	// 3. Inviter must currently own the organization.
	if err := s.requireOwner(ctx, inviterID, orgID); err != nil {
		return "", err
	}

	// 4. Refuse to invite an existing member.
	if _, err := s.Store.Memberships().GetMembership(ctx, inviteeID, orgID); err == nil {
		return "", ErrAlreadyJoined
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	// 5. Mint the invitation token.
	token, err := s.Tokens.MintInviteToken(ctx, inviterID, inviteeID, orgID)
	if err != nil {
		return "", err
	}

	// 6. Best-effort email delivery.
	if s.Mailer != nil && invitee.Email != "" {
		if err := s.Mailer.SendInvite(ctx, invitee.Email, org, inviter, token); err != nil {
			log.Warn("failed to send invite email",
				slog.String("to", invitee.Email),
				slog.Any("error", err),
			)
		}
	}

	log.Info("organization invite minted",
		slog.Int64("org_id", orgID),
		slog.Int64("inviter_id", inviterID),
		slog.Int64("invitee_id", inviteeID),
	)
	return token, nil
}

// ConfirmInvite redeems an invitation token as the calling user. The
// token's credential snapshot must still match the invitee's current
// password hash, and the inviter must still own the organization at
// redemption time.
func (s *InviteService) ConfirmInvite(
	ctx context.Context,
	token string,
	caller domain.User,
) (domain.OrganizationMembership, error) {
	log := slogx.FromContext(ctx)

	// 1. Decode and structurally validate the token.
	claims, err := s.Tokens.resolveInviteToken(ctx, token)
	if err != nil {
		return domain.OrganizationMembership{}, err
	}

	// 2. Only the named invitee may redeem.
	if caller.ID != claims.InviteeID {
		return domain.OrganizationMembership{}, ErrPermissionDenied
	}

	// 3. The credential snapshot must match the invitee's current hash.
	// A password change after the invite was sent voids it.
	invitee, err := s.Store.Users().GetUserByID(ctx, claims.InviteeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrganizationMembership{}, ErrUserNotFound
		}
		return domain.OrganizationMembership{}, err
	}
	if subtle.ConstantTimeCompare(
		[]byte(claims.CredentialSnapshot),
		[]byte(invitee.PasswordHash),
	) != 1 {
		log.Warn("invite redeemed with stale credential snapshot",
			slog.Int64("invitee_id", claims.InviteeID),
		)
		return domain.OrganizationMembership{}, ErrPermissionDenied
	}

	// 4. The organization must still exist and the inviter must still
	// own it: revoking ownership revokes their outstanding invites.
	if _, err := s.Store.Organizations().GetOrganizationByID(ctx, claims.OrgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrganizationMembership{}, ErrOrganizationNotFound
		}
		return domain.OrganizationMembership{}, err
	}
	if err := s.requireOwner(ctx, claims.InviterID, claims.OrgID); err != nil {
		return domain.OrganizationMembership{}, err
	}

	// 5. Insert the membership and bump the member count atomically.
	// The unique (org_id, user_id) constraint makes concurrent
	// redemptions of the same invite settle on exactly one row.
	var membership domain.OrganizationMembership
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Memberships().GetMembership(ctx, claims.InviteeID, claims.OrgID); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		membership = domain.OrganizationMembership{
			OrgID:  claims.OrgID,
			UserID: claims.InviteeID,
			Role:   domain.OrgRoleMember,
		}
		id, err := tx.Memberships().CreateMembership(ctx, membership)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAlreadyJoined
			}
			return err
		}
		membership.ID = id

		return tx.Organizations().IncrementMemberCount(ctx, claims.OrgID)
	})
	if err != nil {
		return domain.OrganizationMembership{}, err
	}

	log.Info("organization invite confirmed",
		slog.Int64("org_id", claims.OrgID),
		slog.Int64("user_id", claims.InviteeID),
	)
	return membership, nil
}

func (s *InviteService) requireOwner(ctx context.Context, userID, orgID int64) error {
	m, err := s.Store.Memberships().GetMembership(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if m.Role != domain.OrgRoleOwner {
		return ErrPermissionDenied
	}
	return nil
}
