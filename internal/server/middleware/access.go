package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/access"
	"prepmaster/backend/internal/observability"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/server/httpx"
)

// Chain adapts the access stages to chi middleware. A denial is written
// with httpx.Error and counted per stage.
type Chain struct {
	auth    *access.Authenticator
	loaders map[string]access.Loader
	metrics *observability.Metrics
	log     logrus.FieldLogger
}

// NewChain returns a Chain. metrics may be nil.
func NewChain(auth *access.Authenticator, metrics *observability.Metrics, log logrus.FieldLogger) *Chain {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Chain{auth: auth, loaders: make(map[string]access.Loader), metrics: metrics, log: log}
}

// RegisterLoader registers the loader used by CheckOwnership for resourceType.
// Call during setup only.
func (c *Chain) RegisterLoader(resourceType string, load access.Loader) {
	c.loaders[resourceType] = load
}

func (c *Chain) deny(w http.ResponseWriter, r *http.Request, d access.Decision) {
	c.metrics.AccessDenied(string(d.Stage()))
	httpx.Error(w, r, c.log, d.Err())
}

// Authenticate resolves the bearer token and binds the identity.
func (c *Chain) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, d, err := c.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			httpx.Error(w, r, c.log, err)
			return
		}
		if !d.Allowed() {
			c.deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// Authorize requires the bound identity to hold one of roles.
func (c *Chain) Authorize(roles ...rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := access.Authorize(IdentityFrom(r.Context()), roles...); !d.Allowed() {
				c.deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasPermission requires the bound identity's role to grant p.
func (c *Chain) HasPermission(p rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := access.HasPermission(IdentityFrom(r.Context()), p); !d.Allowed() {
				c.deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckOwnership loads the resource named by the idParam URL parameter with
// the loader registered for resourceType and binds it on success. It panics
// at setup when no loader is registered.
func (c *Chain) CheckOwnership(resourceType, idParam string) func(http.Handler) http.Handler {
	load, ok := c.loaders[resourceType]
	if !ok {
		panic("middleware: no loader registered for resource type " + resourceType)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, d, err := access.CheckOwnership(r.Context(), IdentityFrom(r.Context()), load, chi.URLParam(r, idParam))
			if err != nil {
				httpx.Error(w, r, c.log, err)
				return
			}
			if !d.Allowed() {
				c.deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithResource(r.Context(), res)))
		})
	}
}
