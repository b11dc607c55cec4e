package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// BootstrapConfig carries the initial administrator credentials.
type BootstrapConfig struct {
	AdminIDNumber string
	AdminPassword string
}

type permissionSeed struct {
	name        string
	description string
}

var permissionVocabulary = []permissionSeed{
	{shared.PermAdministrator, "Unrestricted access to every operation"},
	{shared.PermUsersView, "View user accounts"},
	{shared.PermUsersEdit, "Manage user accounts"},
	{shared.PermRolesView, "View roles"},
	{shared.PermRolesEdit, "Manage roles"},
	{shared.PermPermissionsView, "View permissions"},
	{shared.PermApplicationsView, "View scholarship applications"},
	{shared.PermApplicationsReview, "Review scholarship applications"},
	{shared.PermDocumentsView, "View submitted documents"},
	{shared.PermDocumentsManage, "Upload and manage documents"},
	{shared.PermEvaluationsEdit, "Record candidate evaluations"},
	{shared.PermInterviewsView, "View interview schedules"},
	{shared.PermInterviewsSchedule, "Schedule interviews"},
	{shared.PermNotificationsSend, "Send applicant notifications"},
}

type roleSeed struct {
	name        string
	description string
	permissions []string
}

var roleSeeds = []roleSeed{
	{
		name:        "admin",
		description: "Platform administrator",
		permissions: []string{shared.PermAdministrator},
	},
	{
		name:        "applicant",
		description: "Scholarship applicant",
		permissions: []string{
			shared.PermApplicationsView,
			shared.PermDocumentsManage,
		},
	},
	{
		name:        "oas_staff",
		description: "Office of Admissions and Scholarships staff",
		permissions: []string{
			shared.PermApplicationsView,
			shared.PermApplicationsReview,
			shared.PermDocumentsView,
			shared.PermInterviewsView,
			shared.PermInterviewsSchedule,
			shared.PermNotificationsSend,
		},
	},
	{
		name:        "department_head",
		description: "Evaluating department head",
		permissions: []string{
			shared.PermApplicationsView,
			shared.PermEvaluationsEdit,
			shared.PermInterviewsView,
		},
	},
}

// Bootstrap idempotently seeds the permission vocabulary, the baseline roles
// and, on a fresh install, the initial administrator account. Invoked
// explicitly from process startup before the server accepts traffic.
func (s *Service) Bootstrap(ctx context.Context, cfg BootstrapConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	permIDs := make(map[string]int64, len(permissionVocabulary))
	for _, seed := range permissionVocabulary {
		perm, err := s.EnsurePermission(ctx, seed.name, seed.description)
		if err != nil {
			return fmt.Errorf("ensure permission %s: %w", seed.name, err)
		}
		permIDs[perm.Name] = perm.ID
	}

	for _, seed := range roleSeeds {
		var roleID int64
		err := s.pool.QueryRow(ctx, `
			INSERT INTO roles (name, description, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
			RETURNING id`,
			seed.name, seed.description).Scan(&roleID)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", seed.name, err)
		}
		for _, permName := range seed.permissions {
			permID, ok := permIDs[permName]
			if !ok {
				return fmt.Errorf("role %s references unknown permission %s", seed.name, permName)
			}
			if _, err := s.pool.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
				return fmt.Errorf("attach %s to %s: %w", permName, seed.name, err)
			}
		}
	}

	return s.ensureAdminAccount(ctx, cfg, logger)
}

// ensureAdminAccount creates the first administrator only while the user
// table is empty, so restarts never resurrect or duplicate it.
func (s *Service) ensureAdminAccount(ctx context.Context, cfg BootstrapConfig, logger *slog.Logger) error {
	var userCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}
	if cfg.AdminPassword == "" {
		logger.Warn("no users exist and ADMIN_PASSWORD is unset, skipping admin bootstrap")
		return nil
	}

	adminRole, err := s.RoleByName(ctx, "admin")
	if err != nil {
		return fmt.Errorf("admin role missing: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id_number, password_hash, role_id, verified, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, FALSE, NOW(), NOW())`,
		cfg.AdminIDNumber, string(hash), adminRole.ID)
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	logger.Info("initial admin account created", slog.String("id_number", cfg.AdminIDNumber))
	return nil
}
