package rbac

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// Handler exposes role and permission management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	guard     Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, guard Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, audit: audit, guard: guard, validator: validator.New()}
}

// MountRoutes registers role and permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(shared.PermRolesView))
			r.Get("/", h.listRoles)
			r.Get("/{id}", h.getRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(shared.PermRolesEdit))
			r.Post("/", h.createRole)
			r.Put("/{id}", h.updateRole)
			r.Delete("/{id}", h.deleteRole)
			r.Put("/{id}/permissions", h.setRolePermissions)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.PermPermissionsView))
		r.Get("/permissions", h.listPermissions)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type setPermissionsRequest struct {
	PermissionIDs []int64 `json:"permissionIds" validate:"required"`
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type roleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Permissions []permissionResponse `json:"permissions,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, newRoleResponse(role, nil))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), role.ID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"role": newRoleResponse(role, perms)})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, "role.create", role.ID)
	shared.RespondJSON(w, http.StatusCreated, map[string]any{"role": newRoleResponse(role, nil)})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req roleRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, "role.update", role.ID)
	shared.RespondJSON(w, http.StatusOK, map[string]any{"role": newRoleResponse(role, nil)})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, "role.delete", id)
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Role deleted"})
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req setPermissionsRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, "role.set_permissions", id)
	perms, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"role": newRoleResponse(role, perms)})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shared.ValidationError("Invalid JSON body")
	}
	if err := h.validator.Struct(v); err != nil {
		return shared.ValidationError("Invalid request")
	}
	return nil
}

func (h *Handler) recordAudit(r *http.Request, action string, roleID int64) {
	if h.audit == nil {
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	var actorID int64
	if identity != nil {
		actorID = identity.UserID
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
	}); err != nil {
		h.logger.Warn("record audit log", slog.Any("error", err))
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ValidationError("Invalid id")
	}
	return id, nil
}

func newRoleResponse(role Role, perms []Permission) roleResponse {
	out := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
	for _, p := range perms {
		out.Permissions = append(out.Permissions, permissionResponse{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return out
}
