// Package jwtx wraps github.com/golang-jwt/jwt/v5 for the two token
// shapes this service hands out: the continuous capability envelope
// that carries a share or invite grant, and short-lived session tokens
// minted by share login.
package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
)

// EnvelopeClaims combine the two independently encrypted channels of a
// capability token into one signed, URL-safe string. Deliberately no
// exp claim: capability tokens outlive sessions and are only
// invalidated by key rotation or by the persisted state they re-derive
// trust from.
type EnvelopeClaims struct {
	jwt.RegisteredClaims

	// Identity is the ciphertext of the identity channel.
	Identity string `json:"idn"`

	// Secret is the ciphertext of the secret channel.
	Secret string `json:"sec"`
}

// Envelope seals and opens capability envelopes with an HMAC-SHA256
// secret shared across the service processes.
type Envelope struct {
	secret []byte
}

func NewEnvelope(secret []byte) (*Envelope, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty envelope secret")
	}
	return &Envelope{secret: secret}, nil
}

// Seal combines the two channel ciphertexts into one opaque token.
func (e *Envelope) Seal(identity, secret string) (string, error) {
	claims := EnvelopeClaims{
		Identity: identity,
		Secret:   secret,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(e.secret)
}

// Open verifies the envelope signature and returns the two channel
// ciphertexts. Any tampering with the combined token fails here before
// the channels themselves are decrypted.
func (e *Envelope) Open(token string) (identity, secret string, err error) {
	var claims EnvelopeClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrAlgMismatch, t.Header["alg"])
		}
		return e.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.Identity == "" || claims.Secret == "" {
		return "", "", fmt.Errorf("%w: missing channel", ErrMalformed)
	}
	return claims.Identity, claims.Secret, nil
}
