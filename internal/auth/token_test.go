package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/scholaris-oas/scholaris/internal/shared"
	_ "github.com/scholaris-oas/scholaris/testing"
)

func testIssuer(now time.Time) *Issuer {
	issuer := NewIssuer("test-secret", time.Hour, 30*24*time.Hour)
	issuer.now = func() time.Time { return now }
	return issuer
}

func TestSignAndParseRoundtrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(now)
	user := &User{ID: 42, IDNumber: "2024-00042"}
	role := RoleRef{ID: 2, Name: "applicant"}

	token, expiresAt, err := issuer.Sign(user, role, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got, want := expiresAt, now.Add(time.Hour); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user id 42, got %d", userID)
	}
	if claims.IDNumber != "2024-00042" {
		t.Fatalf("expected id number in claims, got %q", claims.IDNumber)
	}
	if claims.RoleID != 2 || claims.RoleName != "applicant" {
		t.Fatalf("expected role claims, got %d %q", claims.RoleID, claims.RoleName)
	}
	if claims.ID == "" {
		t.Fatalf("expected a token id")
	}
}

func TestSignRequiresResolvedRole(t *testing.T) {
	issuer := testIssuer(time.Now())
	user := &User{ID: 1, IDNumber: "X-1"}

	if _, _, err := issuer.Sign(user, RoleRef{}, false); !errors.Is(err, ErrRoleUnresolved) {
		t.Fatalf("expected ErrRoleUnresolved, got %v", err)
	}
	if _, _, err := issuer.Sign(user, RoleRef{ID: 3}, false); !errors.Is(err, ErrRoleUnresolved) {
		t.Fatalf("expected ErrRoleUnresolved for nameless role, got %v", err)
	}
}

func TestRememberExtendsLifetime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(now)
	user := &User{ID: 7, IDNumber: "X-7"}
	role := RoleRef{ID: 1, Name: "admin"}

	_, shortExpiry, err := issuer.Sign(user, role, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, longExpiry, err := issuer.Sign(user, role, true)
	if err != nil {
		t.Fatalf("sign remember: %v", err)
	}
	if !longExpiry.After(shortExpiry) {
		t.Fatalf("expected remember expiry %v after default %v", longExpiry, shortExpiry)
	}
	if got, want := longExpiry.Sub(now), 30*24*time.Hour; got != want {
		t.Fatalf("expected remember ttl %v, got %v", want, got)
	}
}

func TestParseExpiredToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(now)
	token, _, err := issuer.Sign(&User{ID: 5, IDNumber: "X-5"}, RoleRef{ID: 2, Name: "applicant"}, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	issuer.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := issuer.Parse(token); !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(now)
	other := NewIssuer("other-secret", time.Hour, time.Hour)
	other.now = func() time.Time { return now }

	token, _, err := other.Sign(&User{ID: 9, IDNumber: "X-9"}, RoleRef{ID: 2, Name: "applicant"}, false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Parse(token); !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := testIssuer(time.Now())
	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := issuer.Parse(raw); !errors.Is(err, shared.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}
