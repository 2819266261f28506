package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/internal/share/store"
	"github.com/vizboard/vizboard/pkg/fieldx"
	"github.com/vizboard/vizboard/pkg/jwtx"
	"github.com/vizboard/vizboard/pkg/slogx"
)

var (
	// ErrInvalidRequest reports bad caller input (non-positive ids,
	// sentinel characters in a username).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidToken reports a token that is undecryptable, malformed,
	// has the wrong arity, or fails the cross-channel check. Callers
	// should treat it as "link broken".
	ErrInvalidToken = errors.New("invalid token")

	// ErrPermissionDenied reports a well-formed token whose identity or
	// role binding the caller does not satisfy. Distinct from a broken
	// link.
	ErrPermissionDenied = errors.New("permission denied")

	ErrUserNotFound         = errors.New("user not found")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// Cipher is the reversible symmetric cipher used for token channels.
// Decrypt must fail on any input it did not produce.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService generates and parses capability tokens: resource-share
// tokens and organization-invite tokens. Both pack small field tuples
// into two channels, encrypt each channel independently, and seal the
// pair into one opaque string. Parsing re-derives all trust from
// current persisted state, so role or credential changes invalidate
// outstanding tokens immediately.
type TokenService struct {
	Store    store.Store
	Cipher   Cipher
	Envelope *jwtx.Envelope
}

// MintShareToken creates a share token for a resource. With a recipient
// username the token is restricted to that user (3/2 field layout);
// without one anyone holding the token may redeem it (2/1 layout).
func (s *TokenService) MintShareToken(
	ctx context.Context,
	resourceID int64,
	issuerID int64,
	recipientUsername string,
) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate ids.
	if resourceID < 1 || issuerID < 1 {
		return "", ErrInvalidRequest
	}

	resource := strconv.FormatInt(resourceID, 10)
	issuer := strconv.FormatInt(issuerID, 10)

	identity := []string{resource, issuer}
	secret := []string{resource}

	// 2. Resolve the recipient, if the share is restricted.
	if recipientUsername != "" {
		// The codec does not escape; a username carrying the sentinel
		// would corrupt the packed tuple.
		if fieldx.ContainsSentinel(recipientUsername) {
			log.Warn("share mint rejected: sentinel in recipient username",
				slog.String("recipient", recipientUsername),
			)
			return "", ErrInvalidRequest
		}

		recipient, err := s.Store.Users().GetUserByUsername(ctx, recipientUsername)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("share mint attempted for unknown recipient",
					slog.String("recipient", recipientUsername),
				)
				return "", ErrUserNotFound
			}
			log.Error("failed to fetch recipient", slog.Any("error", err))
			return "", err
		}

		identity = append(identity, recipient.Username)
		secret = append(secret, strconv.FormatInt(recipient.ID, 10))
	}

	// 3. Encrypt each channel independently and seal the pair.
	return s.seal(identity, secret)
}

// MintInviteToken creates an organization-invite token. The secret
// channel carries a snapshot of the invitee's current credential hash,
// so a later password change invalidates the invite.
func (s *TokenService) MintInviteToken(
	ctx context.Context,
	inviterID, inviteeID, orgID int64,
) (string, error) {
	log := slogx.FromContext(ctx)

	if inviterID < 1 || inviteeID < 1 || orgID < 1 {
		return "", ErrInvalidRequest
	}

	invitee, err := s.Store.Users().GetUserByID(ctx, inviteeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("invite mint attempted for unknown invitee",
				slog.Int64("invitee_id", inviteeID),
			)
			return "", ErrUserNotFound
		}
		log.Error("failed to fetch invitee", slog.Any("error", err))
		return "", err
	}

	identity := []string{
		strconv.FormatInt(inviterID, 10),
		strconv.FormatInt(inviteeID, 10),
		strconv.FormatInt(orgID, 10),
	}
	secret := []string{invitee.PasswordHash}

	return s.seal(identity, secret)
}

// ResolveShareToken decrypts, unpacks, and re-validates a share token
// against live state. caller may be nil; anonymous callers can redeem
// unrestricted tokens only. Safe to call repeatedly: no mutation.
func (s *TokenService) ResolveShareToken(
	ctx context.Context,
	token string,
	caller *domain.User,
) (domain.ShareInfo, error) {
	log := slogx.FromContext(ctx)

	// 1. Open the envelope and decrypt both channels.
	identity, secret, err := s.open(token)
	if err != nil {
		return domain.ShareInfo{}, err
	}

	// 2. Arity must be 2/1 (anonymous) or 3/2 (restricted).
	restricted := len(identity) == 3
	if !(len(identity) == 2 && len(secret) == 1) &&
		!(restricted && len(secret) == 2) {
		log.Warn("share token with bad arity",
			slog.Int("identity_fields", len(identity)),
			slog.Int("secret_fields", len(secret)),
		)
		return domain.ShareInfo{}, ErrInvalidToken
	}

	// 3. Resolve the issuing user.
	issuerID, err := parsePositiveID(identity[1])
	if err != nil {
		return domain.ShareInfo{}, ErrInvalidToken
	}
	issuer, err := s.Store.Users().GetUserByID(ctx, issuerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("share token references missing issuer",
				slog.Int64("issuer_id", issuerID),
			)
			return domain.ShareInfo{}, ErrInvalidToken
		}
		log.Error("failed to fetch issuer", slog.Any("error", err))
		return domain.ShareInfo{}, err
	}

	// 4. Cross-check the resource id between channels.
	resourceID, err := parsePositiveID(identity[0])
	if err != nil {
		return domain.ShareInfo{}, ErrInvalidToken
	}
	secretResourceID, err := parsePositiveID(secret[0])
	if err != nil || resourceID != secretResourceID {
		log.Warn("share token failed resource cross-check",
			slog.Int64("identity_resource", resourceID),
		)
		return domain.ShareInfo{}, ErrInvalidToken
	}

	info := domain.ShareInfo{ResourceID: resourceID, Issuer: issuer}

	// 5. For restricted tokens, bind the recipient and check the caller.
	if restricted {
		recipientID, err := parsePositiveID(secret[1])
		if err != nil {
			return domain.ShareInfo{}, ErrInvalidToken
		}

		recipient, err := s.Store.Users().GetUserByUsername(ctx, identity[2])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ShareInfo{}, ErrPermissionDenied
			}
			log.Error("failed to fetch recipient", slog.Any("error", err))
			return domain.ShareInfo{}, err
		}
		if recipient.ID != recipientID {
			// Channels disagree about who the recipient is: forged.
			log.Warn("share token recipient binding mismatch",
				slog.String("recipient", recipient.Username),
			)
			return domain.ShareInfo{}, ErrPermissionDenied
		}

		if caller == nil || (caller.ID != recipient.ID && caller.ID != issuer.ID) {
			return domain.ShareInfo{}, ErrPermissionDenied
		}

		info.Recipient = &domain.RecipientBinding{
			Username: recipient.Username,
			UserID:   recipient.ID,
		}
	}

	return info, nil
}

// inviteClaims are the raw validated fields of an invite token before
// live-state checks. CredentialSnapshot is the invitee's password hash
// at mint time.
type inviteClaims struct {
	InviterID          int64
	InviteeID          int64
	OrgID              int64
	CredentialSnapshot string
}

// resolveInviteToken decrypts and structurally validates an invite
// token. There is no 2-field invite variant: exactly 3 identity fields
// and a 1-field secret.
func (s *TokenService) resolveInviteToken(ctx context.Context, token string) (inviteClaims, error) {
	identity, secret, err := s.open(token)
	if err != nil {
		return inviteClaims{}, err
	}

	if len(identity) != 3 || len(secret) != 1 || secret[0] == "" {
		return inviteClaims{}, ErrInvalidToken
	}

	inviterID, err := parsePositiveID(identity[0])
	if err != nil {
		return inviteClaims{}, ErrInvalidToken
	}
	inviteeID, err := parsePositiveID(identity[1])
	if err != nil {
		return inviteClaims{}, ErrInvalidToken
	}
	orgID, err := parsePositiveID(identity[2])
	if err != nil {
		return inviteClaims{}, ErrInvalidToken
	}

	return inviteClaims{
		InviterID:          inviterID,
		InviteeID:          inviteeID,
		OrgID:              orgID,
		CredentialSnapshot: secret[0],
	}, nil
}

// seal packs and encrypts the two channels and combines them into one
// opaque token.
func (s *TokenService) seal(identity, secret []string) (string, error) {
	identityCT, err := s.Cipher.Encrypt(fieldx.Pack(identity...))
	if err != nil {
		return "", err
	}
	secretCT, err := s.Cipher.Encrypt(fieldx.Pack(secret...))
	if err != nil {
		return "", err
	}
	return s.Envelope.Seal(identityCT, secretCT)
}

// open reverses seal. All failure modes collapse to ErrInvalidToken:
// the caller cannot distinguish a corrupted link from a forged one, and
// should not.
func (s *TokenService) open(token string) (identity, secret []string, err error) {
	if token == "" {
		return nil, nil, ErrInvalidToken
	}

	identityCT, secretCT, err := s.Envelope.Open(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	identityPT, err := s.Cipher.Decrypt(identityCT)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	secretPT, err := s.Cipher.Decrypt(secretCT)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	return fieldx.Unpack(identityPT), fieldx.Unpack(secretPT), nil
}

// parsePositiveID parses a numeric token field. Zero, negative, and
// unparsable values all invalidate the token.
func parsePositiveID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
