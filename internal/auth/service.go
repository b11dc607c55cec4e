package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// RoleDirectory resolves role references without importing the registry.
type RoleDirectory interface {
	RoleByID(ctx context.Context, id int64) (RoleRef, error)
	RoleByName(ctx context.Context, name string) (RoleRef, error)
}

// RoleApplicant is assigned to self-registered accounts.
const RoleApplicant = "applicant"

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleDirectory
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleDirectory) *Service {
	return &Service{repo: repo, roles: roles}
}

// RegisterInput carries validated registration fields.
type RegisterInput struct {
	IDNumber string
	Email    string
	Password string
	CourseID string
}

// Register creates an applicant account with a hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, RoleRef, error) {
	role, err := s.roles.RoleByName(ctx, RoleApplicant)
	if err != nil {
		return nil, RoleRef{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, RoleRef{}, err
	}
	user, err := s.repo.Create(ctx, &User{
		IDNumber:     in.IDNumber,
		Email:        in.Email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		CourseID:     in.CourseID,
	})
	if err != nil {
		return nil, RoleRef{}, err
	}
	return user, role, nil
}

// Authenticate validates idNumber/password credentials.
func (s *Service) Authenticate(ctx context.Context, idNumber, password string) (*User, error) {
	user, err := s.repo.FindByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, shared.ErrAccountDisabled
	}
	return user, nil
}

// Role resolves the user's role reference for token issuance.
func (s *Service) Role(ctx context.Context, user *User) (RoleRef, error) {
	if user == nil || user.RoleID == 0 {
		return RoleRef{}, ErrRoleUnresolved
	}
	role, err := s.roles.RoleByID(ctx, user.RoleID)
	if err != nil {
		return RoleRef{}, ErrRoleUnresolved
	}
	return role, nil
}

// FindByID fetches a user record.
func (s *Service) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ChangePassword swaps the password hash after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}
