package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

const sessionCookieName = "jwt"

// Middleware is the authentication gate: token → request-scoped identity.
type Middleware struct {
	Issuer    *Issuer
	Blacklist *Blacklist
	Logger    *slog.Logger
}

// Authenticate verifies the bearer token, consults the blacklist and attaches
// the resolved identity. Any failure is terminal for the request.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			shared.RespondError(w, m.Logger, shared.ErrUnauthenticated)
			return
		}
		claims, err := m.Issuer.Parse(token)
		if err != nil {
			shared.RespondError(w, m.Logger, shared.ErrInvalidToken)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			shared.RespondError(w, m.Logger, shared.ErrInvalidToken)
			return
		}
		// One Redis round-trip per request buys immediate revocation.
		revoked, err := m.Blacklist.Contains(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("blacklist lookup", slog.Any("error", err))
			}
			shared.RespondError(w, m.Logger, shared.ServerError())
			return
		}
		if revoked {
			shared.RespondError(w, m.Logger, shared.ErrSessionRevoked)
			return
		}

		identity := &shared.Identity{
			UserID:    userID,
			IDNumber:  claims.IDNumber,
			RoleID:    claims.RoleID,
			RoleName:  claims.RoleName,
			RawToken:  token,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// TokenFromRequest extracts the bearer token, preferring the session cookie
// over the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
