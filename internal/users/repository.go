package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns a page of users joined with their role names.
func (r *Repository) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.id_number, COALESCE(u.email, ''), COALESCE(u.course_id, ''),
			u.role_id, r.name, u.verified, u.disabled, u.created_at, u.updated_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.id
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.IDNumber, &user.Email, &user.CourseID,
			&user.RoleID, &user.RoleName, &user.Verified, &user.Disabled,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// AssignRole points the user at a different role.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, userID, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetDisabled flips the disabled flag.
func (r *Repository) SetDisabled(ctx context.Context, userID int64, disabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET disabled = $2, updated_at = NOW() WHERE id = $1`, userID, disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExemptVerification marks the account verified without an email round-trip.
func (r *Repository) ExemptVerification(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET verified = TRUE,
			verification_code = NULL,
			verification_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
