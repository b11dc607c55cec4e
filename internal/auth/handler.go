package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	verification  *VerificationService
	issuer        *Issuer
	blacklist     *Blacklist
	audit         *shared.AuditLogger
	authn         Middleware
	validator     *validator.Validate
	secureCookies bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, verification *VerificationService, issuer *Issuer, blacklist *Blacklist, audit *shared.AuditLogger, authn Middleware, secureCookies bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		service:       service,
		verification:  verification,
		issuer:        issuer,
		blacklist:     blacklist,
		audit:         audit,
		authn:         authn,
		validator:     validator.New(),
		secureCookies: secureCookies,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.LimitByIP(10, time.Minute)

	r.With(limiter).Post("/register", h.register)
	r.With(limiter).Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/email/verify", h.verifyEmail)
	r.With(limiter).Get("/email/resend", h.resendCode)

	r.Group(func(r chi.Router) {
		r.Use(h.authn.Authenticate)
		r.Get("/me", h.me)
		r.Put("/email", h.updateEmail)
		r.Post("/change-password", h.changePassword)
	})
}

type registerRequest struct {
	IDNumber string `json:"idNumber" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
	CourseID string `json:"courseId"`
}

type loginRequest struct {
	IDNumber string `json:"idNumber" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type updateEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type roleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID       int64        `json:"id"`
	IDNumber string       `json:"idNumber"`
	Email    string       `json:"email,omitempty"`
	CourseID string       `json:"courseId,omitempty"`
	Verified bool         `json:"verified"`
	Role     roleResponse `json:"role"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}

	user, role, err := h.service.Register(r.Context(), RegisterInput{
		IDNumber: strings.TrimSpace(req.IDNumber),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		CourseID: strings.TrimSpace(req.CourseID),
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}

	if err := h.verification.IssueInitial(r.Context(), user); err != nil {
		h.logger.Warn("issue verification code", slog.Any("error", err))
	}

	token, _, err := h.issuer.Sign(user, role, false)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.setSessionCookie(w, token, h.issuer.TTL(false))
	h.recordAudit(r, user.ID, "auth.register", user)

	shared.RespondJSON(w, http.StatusCreated, map[string]any{
		"user": newUserResponse(user, role),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), strings.TrimSpace(req.IDNumber), req.Password)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.Role(r.Context(), user)
	if err != nil {
		h.logger.Error("resolve role for login", slog.String("id_number", user.IDNumber), slog.Any("error", err))
		shared.RespondError(w, h.logger, shared.ServerError())
		return
	}

	token, _, err := h.issuer.Sign(user, role, req.Remember)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.setSessionCookie(w, token, h.issuer.TTL(req.Remember))
	h.recordAudit(r, user.ID, "auth.login", user)

	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"user": newUserResponse(user, role),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)
	if token != "" {
		if claims, err := h.issuer.Parse(token); err == nil {
			if err := h.blacklist.Revoke(r.Context(), token, claims.ExpiresAt.Time, "logout"); err != nil {
				h.logger.Warn("blacklist token", slog.Any("error", err))
			}
			if userID, err := claims.UserID(); err == nil {
				h.recordAudit(r, userID, "auth.logout", nil)
			}
		}
	}
	h.clearSessionCookie(w)
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		shared.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	user, err := h.service.FindByID(r.Context(), identity.UserID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	role := RoleRef{ID: identity.RoleID, Name: identity.RoleName}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"user": newUserResponse(user, role),
	})
}

func (h *Handler) updateEmail(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		shared.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	var req updateEmailRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.verification.UpdateEmail(r.Context(), identity.UserID, strings.TrimSpace(req.Email)); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Verification code sent to the new address"})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		shared.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	var req changePasswordRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}

	// The current token must not outlive the old password.
	if err := h.blacklist.Revoke(r.Context(), identity.RawToken, identity.ExpiresAt, "password_change"); err != nil {
		h.logger.Warn("blacklist token after password change", slog.Any("error", err))
	}
	h.clearSessionCookie(w)
	h.recordAudit(r, identity.UserID, "auth.change_password", nil)
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Password changed, please log in again"})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	idNumber := strings.TrimSpace(r.URL.Query().Get("idNumber"))
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if idNumber == "" || code == "" {
		shared.RespondError(w, h.logger, shared.ValidationError("idNumber and code are required"))
		return
	}
	user, err := h.verification.Verify(r.Context(), idNumber, code)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.recordAudit(r, user.ID, "auth.email_verified", nil)
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Email verified"})
}

func (h *Handler) resendCode(w http.ResponseWriter, r *http.Request) {
	idNumber := strings.TrimSpace(r.URL.Query().Get("idNumber"))
	if idNumber == "" {
		shared.RespondError(w, h.logger, shared.ValidationError("idNumber is required"))
		return
	}
	if err := h.verification.Resend(r.Context(), idNumber); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, shared.Message{Message: "Verification code sent"})
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shared.ValidationError("Invalid JSON body")
	}
	if err := h.validator.Struct(v); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return shared.ValidationError("Invalid request")
		}
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fe.Field()+" is invalid")
		}
		return shared.ValidationError(strings.Join(parts, "; "))
	}
	return nil
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) recordAudit(r *http.Request, actorID int64, action string, user *User) {
	if h.audit == nil {
		return
	}
	meta := map[string]any{"ip": r.RemoteAddr}
	entityID := strconv.FormatInt(actorID, 10)
	if user != nil {
		meta["id_number"] = user.IDNumber
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("record audit log", slog.Any("error", err))
	}
}

func newUserResponse(user *User, role RoleRef) userResponse {
	return userResponse{
		ID:       user.ID,
		IDNumber: user.IDNumber,
		Email:    user.Email,
		CourseID: user.CourseID,
		Verified: user.Verified,
		Role:     roleResponse{ID: role.ID, Name: role.Name},
	}
}
