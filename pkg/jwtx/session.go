package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a share-login session token.
// Short-lived by design; the capability token itself is what grants
// access, the session only carries the caller's identity.
const DefaultSessionTTL = 30 * time.Minute

var ErrExpired = errors.New("jwtx: token expired")

// SessionClaims identify an authenticated caller on restricted-share
// requests. Subject is the numeric user id.
type SessionClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
}

// SessionSigner mints and verifies caller session tokens.
type SessionSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewSessionSigner(secret []byte, issuer string, ttl time.Duration) (*SessionSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty session secret")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionSigner{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// Sign mints a session token for the given user.
func (s *SessionSigner) Sign(userID int64, username string, now time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: username,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks signature, issuer, and expiry, and returns the caller's
// user id and username.
func (s *SessionSigner) Verify(token string) (userID int64, username string, err error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrAlgMismatch, t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", ErrExpired
		}
		return 0, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !parsed.Valid {
		return 0, "", ErrMalformed
	}

	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID < 1 {
		return 0, "", fmt.Errorf("%w: bad subject", ErrMalformed)
	}
	return userID, claims.Username, nil
}
