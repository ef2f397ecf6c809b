package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "wsgateway-secret-change-me"

// Verification failures. Every error returned by Verify wraps exactly one of these.
var (
	ErrExpired    = errors.New("token expired")
	ErrInvalid    = errors.New("token invalid")
	ErrUnverified = errors.New("token unverified")
)

// Claims is the JWT payload.
type Claims struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"uid,omitempty"`
	jwtlib.RegisteredClaims
}

// IdentityKey returns the key a verified credential is addressed by: the email claim,
// falling back to the subject. Empty when neither is present.
func (c *Claims) IdentityKey() string {
	if c == nil {
		return ""
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		return strings.ToLower(email)
	}
	return strings.TrimSpace(c.Subject)
}

// Verifier signs and validates HS256 tokens with one shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used for expiry checks and issuing.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// New creates a Verifier. An empty secret falls back to the built-in default.
func New(secret string, opts ...Option) *Verifier {
	s := strings.TrimSpace(secret)
	if s == "" {
		s = defaultSecret
	}
	v := &Verifier{secret: []byte(s), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// UsesDefaultSecret reports whether the verifier was built without a configured secret.
func (v *Verifier) UsesDefaultSecret() bool {
	return string(v.secret) == defaultSecret
}

// Sign creates a signed token for the given identity.
func (v *Verifier) Sign(userID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates signature and expiry and returns the claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalid)
	}

	parser := jwtlib.NewParser(
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(v.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrInvalid)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwtlib.ErrTokenMalformed),
		errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnverified, err)
	}
}
