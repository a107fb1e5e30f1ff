package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"prepmaster/backend/internal/audit"
)

// Audit records one audit entry per mutating request made by an authenticated
// identity, after the handler ran. Reads are not audited. Mount it inside the
// group that runs Authenticate so the identity is bound.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				return
			}
			ident := IdentityFrom(r.Context())
			if ident == nil {
				return
			}
			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			ar := audit.ParseRoute(r.Method, pattern)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.LogEvent(r.Context(), ident.ID, ar.Action, ar.Resource, "status="+strconv.Itoa(status))
		})
	}
}
