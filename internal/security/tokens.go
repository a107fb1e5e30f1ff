package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or otherwise unusable.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is past its validity window.
	ErrExpiredToken = errors.New("token expired")
	// ErrSignatureMismatch is returned when the signature does not match the configured secret.
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

// SessionClaims holds JWT claims for a session token. The subject is the identity id.
// IssuedAtMicros repeats iat at microsecond precision so a password change in the
// same second as the issue can still be ordered against it.
type SessionClaims struct {
	jwt.RegisteredClaims
	IssuedAtMicros int64 `json:"iat_us"`
}

// Claims is the verified content of a session token.
type Claims struct {
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenCodec issues and verifies HS256 session tokens. It holds no state beyond
// its configuration and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a TokenCodec signing with secret. now may be nil (time.Now is used).
func NewTokenCodec(secret []byte, issuer string, ttl time.Duration, now func() time.Time) *TokenCodec {
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    now,
	}
}

// TTL returns the validity window of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for identityID, valid for the codec TTL from now.
func (c *TokenCodec) Issue(identityID string) (token string, expiresAt time.Time, err error) {
	if identityID == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	now := c.now().UTC()
	expiresAt = now.Add(c.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		IssuedAtMicros: now.UnixMicro(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and validates tokenString (algorithm, signature, exp, iss).
// Returns ErrInvalidToken, ErrExpiredToken or ErrSignatureMismatch on failure.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureMismatch
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrInvalidToken
		}
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.IssuedAt == nil || claims.IssuedAtMicros <= 0 {
		return nil, ErrInvalidToken
	}
	issuedAt := time.UnixMicro(claims.IssuedAtMicros).UTC()
	if issuedAt.Unix() != claims.IssuedAt.Unix() {
		return nil, ErrInvalidToken
	}
	out := &Claims{
		IdentityID: claims.Subject,
		IssuedAt:   issuedAt,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
