package access

import (
	"context"
	"errors"
	"strings"
	"time"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/security"
)

const bearerPrefix = "bearer "

// IdentityLoader resolves an identity by id. It returns nil, nil when no identity exists.
type IdentityLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
}

// Authenticator resolves a bearer token to a live identity.
type Authenticator struct {
	tokens     *security.TokenCodec
	identities IdentityLoader
	now        func() time.Time
}

// NewAuthenticator returns an Authenticator. now defaults to time.Now.
func NewAuthenticator(tokens *security.TokenCodec, identities IdentityLoader, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{tokens: tokens, identities: identities, now: now}
}

// Authenticate checks the Authorization header value. The identity is returned
// only with an allowing decision. A non-nil error is an infrastructure failure
// (store unavailable) and must be treated as a 500 by the caller.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*domain.Identity, Decision, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, Deny(StageAuthenticate, apperr.ErrUnauthenticated, msgNotLoggedIn), nil
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		msg := msgInvalidToken
		if errors.Is(err, security.ErrExpiredToken) {
			msg = msgExpiredToken
		}
		return nil, Deny(StageAuthenticate, apperr.ErrUnauthenticated, msg), nil
	}
	ident, err := a.identities.GetByID(ctx, claims.IdentityID)
	if err != nil {
		return nil, Decision{}, err
	}
	if ident == nil {
		return nil, Deny(StageAuthenticate, apperr.ErrUnauthenticated, msgUserGone), nil
	}
	if ident.PasswordChangedAfter(claims.IssuedAt) {
		return nil, Deny(StageAuthenticate, apperr.ErrUnauthenticated, msgPasswordChanged), nil
	}
	if ident.IsLocked(a.now()) {
		return nil, Deny(StageAuthenticate, apperr.ErrForbidden, msgLocked), nil
	}
	if !ident.Active {
		return nil, Deny(StageAuthenticate, apperr.ErrForbidden, msgDeactivated), nil
	}
	out := ident.Public()
	return &out, Allow(), nil
}

// BearerToken extracts the token from an Authorization header value. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) <= len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(v[len(bearerPrefix):])
	return token, token != ""
}

// Authorize allows ident when its role is one of roles.
func Authorize(ident *domain.Identity, roles ...rbac.Role) Decision {
	if ident == nil {
		return Deny(StageAuthorize, apperr.ErrUnauthenticated, msgNotLoggedIn)
	}
	for _, r := range roles {
		if ident.Role == r {
			return Allow()
		}
	}
	return Deny(StageAuthorize, apperr.ErrForbidden, msgNoPermission)
}

// HasPermission allows ident when its role grants p.
func HasPermission(ident *domain.Identity, p rbac.Permission) Decision {
	if ident == nil {
		return Deny(StagePermission, apperr.ErrUnauthenticated, msgNotLoggedIn)
	}
	if !ident.Role.Can(p) {
		return Deny(StagePermission, apperr.ErrForbidden, msgNoPermission)
	}
	return Allow()
}

// Owned is a resource with a creator.
type Owned interface {
	OwnerID() string
}

// Loader loads a resource by id. It returns a nil Owned (not a typed nil
// pointer) and a nil error when the resource does not exist.
type Loader func(ctx context.Context, id string) (Owned, error)

// CheckOwnership loads the resource and allows admins and the resource owner.
// The resource is returned with an allowing decision.
func CheckOwnership(ctx context.Context, ident *domain.Identity, load Loader, id string) (Owned, Decision, error) {
	if ident == nil {
		return nil, Deny(StageOwnership, apperr.ErrUnauthenticated, msgNotLoggedIn), nil
	}
	res, err := load(ctx, id)
	if err != nil {
		return nil, Decision{}, err
	}
	if res == nil {
		return nil, Deny(StageOwnership, apperr.ErrNotFound, msgResourceNotFound), nil
	}
	if ident.Role.IsAdmin() || res.OwnerID() == ident.ID {
		return res, Allow(), nil
	}
	return nil, Deny(StageOwnership, apperr.ErrForbidden, msgNotResourceOwner), nil
}
