package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-oas/scholaris/internal/rbac"
	"github.com/scholaris-oas/scholaris/internal/shared"
	_ "github.com/scholaris-oas/scholaris/testing"
)

type memoryAdminRepo struct {
	users map[int64]*User
	roles map[int64]string
}

func newMemoryAdminRepo() *memoryAdminRepo {
	return &memoryAdminRepo{
		users: make(map[int64]*User),
		roles: map[int64]string{1: "admin", 2: "applicant"},
	}
}

func (r *memoryAdminRepo) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	var out []User
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, len(r.users), nil
}

func (r *memoryAdminRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	user, ok := r.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	name, ok := r.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	user.RoleID = roleID
	user.RoleName = name
	return nil
}

func (r *memoryAdminRepo) SetDisabled(ctx context.Context, userID int64, disabled bool) error {
	user, ok := r.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	user.Disabled = disabled
	return nil
}

func (r *memoryAdminRepo) ExemptVerification(ctx context.Context, userID int64) error {
	user, ok := r.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	user.Verified = true
	return nil
}

var _ RepositoryPort = (*memoryAdminRepo)(nil)

type grantAll struct{}

func (grantAll) Subject(ctx context.Context, userID int64) (rbac.Subject, error) {
	return rbac.Subject{UserID: userID, Permissions: []string{shared.PermAdministrator}}, nil
}

type grantNone struct{}

func (grantNone) Subject(ctx context.Context, userID int64) (rbac.Subject, error) {
	return rbac.Subject{UserID: userID}, nil
}

func newUsersRouter(t *testing.T, repo RepositoryPort, subjects rbac.SubjectSource) http.Handler {
	t.Helper()
	guard := rbac.Middleware{Subjects: subjects}
	handler := NewHandler(nil, NewService(repo), nil, guard)
	router := chi.NewRouter()
	router.Route("/api/users", handler.MountRoutes)
	return router
}

func adminRequest(method, target string, body any) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, RoleName: "admin"}))
}

func TestListUsers(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2, RoleName: "applicant", CreatedAt: time.Now()}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodGet, "/api/users/", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Users []struct {
			IDNumber string `json:"idNumber"`
			RoleName string `json:"roleName"`
		} `json:"users"`
		Pagination shared.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Users) != 1 || payload.Users[0].RoleName != "applicant" {
		t.Fatalf("unexpected users payload %+v", payload.Users)
	}
	if payload.Pagination.Total != 1 {
		t.Fatalf("expected total 1, got %d", payload.Pagination.Total)
	}
}

func TestListUsersRequiresPermission(t *testing.T) {
	router := newUsersRouter(t, newMemoryAdminRepo(), grantNone{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodGet, "/api/users/", nil))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestAssignRole(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2, RoleName: "applicant"}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/role", map[string]any{"roleId": 1}))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if repo.users[2].RoleID != 1 || repo.users[2].RoleName != "admin" {
		t.Fatalf("expected role updated, got %+v", repo.users[2])
	}
}

func TestAssignRoleUnknownRole(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/role", map[string]any{"roleId": 99}))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestAssignRoleValidatesBody(t *testing.T) {
	router := newUsersRouter(t, newMemoryAdminRepo(), grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/role", map[string]any{"roleId": 0}))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUpdateStatusDisables(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/status", map[string]any{"disabled": true}))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !repo.users[2].Disabled {
		t.Fatalf("expected account disabled")
	}
}

func TestUpdateStatusExemptsVerification(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/status", map[string]any{"verified": true}))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !repo.users[2].Verified {
		t.Fatalf("expected account verified")
	}
}

func TestUpdateStatusRequiresField(t *testing.T) {
	repo := newMemoryAdminRepo()
	repo.users[2] = &User{ID: 2, IDNumber: "2024-00001", RoleID: 2}
	router := newUsersRouter(t, repo, grantAll{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPut, "/api/users/2/status", map[string]any{}))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
