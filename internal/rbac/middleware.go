package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// SubjectSource resolves the authorization view for a user.
type SubjectSource interface {
	Subject(ctx context.Context, userID int64) (Subject, error)
}

// Middleware is the authorization gate: identity + required permission →
// allow or deny.
type Middleware struct {
	Subjects SubjectSource
	Logger   *slog.Logger
}

// Require ensures the current user holds the named permission. The subject is
// re-resolved on every request, so role and permission changes apply to the
// very next call without re-authentication.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				shared.RespondError(w, m.Logger, shared.ErrUnauthenticated)
				return
			}
			subject, err := m.Subjects.Subject(r.Context(), identity.UserID)
			if err != nil {
				// A valid token for a deleted user resolves to 404.
				shared.RespondError(w, m.Logger, err)
				return
			}
			if subject.Disabled {
				shared.RespondError(w, m.Logger, shared.ErrAccountDisabled)
				return
			}
			if subject.Has(shared.PermAdministrator) || subject.Has(permission) {
				next.ServeHTTP(w, r)
				return
			}
			shared.RespondError(w, m.Logger, shared.PermissionDenied(permission))
		})
	}
}
