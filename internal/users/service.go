package users

import "context"

// RepositoryPort defines data access methods for user administration.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page, perPage int) ([]User, int, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	SetDisabled(ctx context.Context, userID int64, disabled bool) error
	ExemptVerification(ctx context.Context, userID int64) error
}

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns a page of users with the total count.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	return s.repo.ListUsers(ctx, page, perPage)
}

// AssignRole moves the user to another role. The change is visible on the
// user's next request because permission checks resolve live.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// SetDisabled enables or disables the account.
func (s *Service) SetDisabled(ctx context.Context, userID int64, disabled bool) error {
	return s.repo.SetDisabled(ctx, userID, disabled)
}

// ExemptVerification administratively marks the account verified.
func (s *Service) ExemptVerification(ctx context.Context, userID int64) error {
	return s.repo.ExemptVerification(ctx, userID)
}
