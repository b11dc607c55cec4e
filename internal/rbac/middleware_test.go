package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scholaris-oas/scholaris/internal/shared"
	_ "github.com/scholaris-oas/scholaris/testing"
)

type stubSubjects struct {
	subjects map[int64]Subject
}

func (s *stubSubjects) Subject(ctx context.Context, userID int64) (Subject, error) {
	subject, ok := s.subjects[userID]
	if !ok {
		return Subject{}, shared.ErrNotFound
	}
	return subject, nil
}

func requireWith(subjects *stubSubjects, permission string) http.Handler {
	gate := Middleware{Subjects: subjects}
	return gate.Require(permission)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequire(handler http.Handler, identity *shared.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	if identity != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRequireWithoutIdentity(t *testing.T) {
	handler := requireWith(&stubSubjects{subjects: map[int64]Subject{}}, shared.PermUsersView)

	res := doRequire(handler, nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireDeletedUser(t *testing.T) {
	handler := requireWith(&stubSubjects{subjects: map[int64]Subject{}}, shared.PermUsersView)

	res := doRequire(handler, &shared.Identity{UserID: 99})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted user, got %d", res.Code)
	}
}

func TestRequireDisabledAccount(t *testing.T) {
	subjects := &stubSubjects{subjects: map[int64]Subject{
		7: {UserID: 7, Disabled: true, Permissions: []string{shared.PermUsersView}},
	}}
	handler := requireWith(subjects, shared.PermUsersView)

	res := doRequire(handler, &shared.Identity{UserID: 7})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != "account_disabled" {
		t.Fatalf("expected account_disabled, got %q", payload.Code)
	}
}

func TestRequireMissingPermission(t *testing.T) {
	subjects := &stubSubjects{subjects: map[int64]Subject{
		7: {UserID: 7, RoleName: "applicant", Permissions: []string{shared.PermApplicationsView}},
	}}
	handler := requireWith(subjects, shared.PermUsersView)

	res := doRequire(handler, &shared.Identity{UserID: 7})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != "permission_denied" {
		t.Fatalf("expected permission_denied, got %q", payload.Code)
	}
	if payload.Message != "Permission denied: users.view required" {
		t.Fatalf("unexpected message %q", payload.Message)
	}
}

func TestRequireGrantedPermission(t *testing.T) {
	subjects := &stubSubjects{subjects: map[int64]Subject{
		7: {UserID: 7, RoleName: "oas_staff", Permissions: []string{shared.PermUsersView}},
	}}
	handler := requireWith(subjects, shared.PermUsersView)

	res := doRequire(handler, &shared.Identity{UserID: 7})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRequireAdministratorBypass(t *testing.T) {
	subjects := &stubSubjects{subjects: map[int64]Subject{
		1: {UserID: 1, RoleName: "admin", Permissions: []string{shared.PermAdministrator}},
	}}
	handler := requireWith(subjects, shared.PermUsersView)

	res := doRequire(handler, &shared.Identity{UserID: 1})
	if res.Code != http.StatusOK {
		t.Fatalf("expected administrator bypass, got %d", res.Code)
	}
}

func TestRequireReflectsGrantImmediately(t *testing.T) {
	subjects := &stubSubjects{subjects: map[int64]Subject{
		7: {UserID: 7, RoleName: "applicant", Permissions: nil},
	}}
	handler := requireWith(subjects, shared.PermUsersView)
	identity := &shared.Identity{UserID: 7}

	if res := doRequire(handler, identity); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", res.Code)
	}

	subjects.subjects[7] = Subject{UserID: 7, RoleName: "applicant", Permissions: []string{shared.PermUsersView}}
	if res := doRequire(handler, identity); res.Code != http.StatusOK {
		t.Fatalf("expected 200 after grant, got %d", res.Code)
	}
}
