package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scholaris-oas/scholaris/internal/shared"
	_ "github.com/scholaris-oas/scholaris/testing"
)

func newTestGate(t *testing.T) (Middleware, *Issuer, *Blacklist) {
	t.Helper()
	issuer := testIssuer(time.Now())
	blacklist, _ := newTestBlacklist(t)
	return Middleware{Issuer: issuer, Blacklist: blacklist}, issuer, blacklist
}

func decodeErrorCode(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Code
}

func TestAuthenticateMissingToken(t *testing.T) {
	gate, _, _ := newTestGate(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run")
	})

	res := httptest.NewRecorder()
	gate.Authenticate(next).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if code := decodeErrorCode(t, res); code != "unauthenticated" {
		t.Fatalf("expected code unauthenticated, got %q", code)
	}
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	gate, _, _ := newTestGate(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "garbage"})
	res := httptest.NewRecorder()
	gate.Authenticate(next).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if code := decodeErrorCode(t, res); code != "invalid_token" {
		t.Fatalf("expected code invalid_token, got %q", code)
	}
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	gate, issuer, _ := newTestGate(t)
	token, _, err := issuer.Sign(&User{ID: 11, IDNumber: "2024-00011"}, RoleRef{ID: 2, Name: "applicant"}, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var seen *shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	res := httptest.NewRecorder()
	gate.Authenticate(next).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if seen == nil {
		t.Fatalf("expected identity in context")
	}
	if seen.UserID != 11 || seen.IDNumber != "2024-00011" {
		t.Fatalf("unexpected identity %+v", seen)
	}
	if seen.RoleID != 2 || seen.RoleName != "applicant" {
		t.Fatalf("unexpected role on identity %+v", seen)
	}
	if seen.RawToken != token {
		t.Fatalf("expected raw token carried on identity")
	}
}

func TestAuthenticateRevokedToken(t *testing.T) {
	gate, issuer, blacklist := newTestGate(t)
	token, expiresAt, err := issuer.Sign(&User{ID: 12, IDNumber: "2024-00012"}, RoleRef{ID: 2, Name: "applicant"}, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := blacklist.Revoke(context.Background(), token, expiresAt, "logout"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	res := httptest.NewRecorder()
	gate.Authenticate(next).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if code := decodeErrorCode(t, res); code != "session_revoked" {
		t.Fatalf("expected code session_revoked, got %q", code)
	}
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})

	if got := TokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", got)
	}

	headerOnly := httptest.NewRequest(http.MethodGet, "/", nil)
	headerOnly.Header.Set("Authorization", "Bearer header-token")
	if got := TokenFromRequest(headerOnly); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}

	if got := TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
