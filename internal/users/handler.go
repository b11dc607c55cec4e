package users

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-oas/scholaris/internal/rbac"
	"github.com/scholaris-oas/scholaris/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, audit: audit, guard: guard, validator: validator.New()}
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.PermUsersView))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.PermUsersEdit))
		r.Put("/{id}/role", h.assignRole)
		r.Put("/{id}/status", h.updateStatus)
	})
}

type assignRoleRequest struct {
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type updateStatusRequest struct {
	Disabled *bool `json:"disabled"`
	Verified *bool `json:"verified"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	IDNumber  string    `json:"idNumber"`
	Email     string    `json:"email,omitempty"`
	CourseID  string    `json:"courseId,omitempty"`
	RoleID    int64     `json:"roleId"`
	RoleName  string    `json:"roleName"`
	Verified  bool      `json:"verified"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	list, total, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, userResponse{
			ID:        u.ID,
			IDNumber:  u.IDNumber,
			Email:     u.Email,
			CourseID:  u.CourseID,
			RoleID:    u.RoleID,
			RoleName:  u.RoleName,
			Verified:  u.Verified,
			Disabled:  u.Disabled,
			CreatedAt: u.CreatedAt,
		})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"users":      out,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req assignRoleRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, "user.assign_role", userID, map[string]any{"role_id": req.RoleID})
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Role assigned"})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.ValidationError("Invalid JSON body"))
		return
	}
	if req.Disabled == nil && req.Verified == nil {
		shared.RespondError(w, h.logger, shared.ValidationError("Nothing to update"))
		return
	}
	if req.Disabled != nil {
		if err := h.service.SetDisabled(r.Context(), userID, *req.Disabled); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		h.recordAudit(r, "user.set_disabled", userID, map[string]any{"disabled": *req.Disabled})
	}
	if req.Verified != nil && *req.Verified {
		if err := h.service.ExemptVerification(r.Context(), userID); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		h.recordAudit(r, "user.exempt_verification", userID, nil)
	}
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "User updated"})
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

func (h *Handler) recordAudit(r *http.Request, action string, userID int64, meta map[string]any) {
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
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
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
