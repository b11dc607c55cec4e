package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-oas/scholaris/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByIDNumber(ctx context.Context, idNumber string) (*User, error)
	EmailInUse(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetVerification(ctx context.Context, id int64, v Verification) error
	MarkVerified(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, id_number, email, password_hash, role_id, course_id, verified, disabled,
	verification_code, verification_expires_at, verification_last_sent_at, pending_email,
	created_at, updated_at`

// Create inserts a new user record.
func (r *PGRepository) Create(ctx context.Context, user *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id_number, email, password_hash, role_id, course_id, verified, disabled, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, FALSE, NOW(), NOW())
		RETURNING `+userColumns,
		user.IDNumber, user.Email, user.PasswordHash, user.RoleID, user.CourseID, user.Verified)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.Conflict("ID number or email already registered")
		}
		return nil, err
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.found(row)
}

// FindByIDNumber fetches a user by external identifier.
func (r *PGRepository) FindByIDNumber(ctx context.Context, idNumber string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id_number = $1`, idNumber)
	return r.found(row)
}

// EmailInUse reports whether the address is claimed as a primary or pending
// email anywhere in the system.
func (r *PGRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR pending_email = $1)`, email).Scan(&exists)
	return exists, err
}

// UpdatePassword stores a new password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetVerification replaces the outstanding verification sub-record.
func (r *PGRepository) SetVerification(ctx context.Context, id int64, v Verification) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			verification_code = $2,
			verification_expires_at = $3,
			verification_last_sent_at = $4,
			pending_email = NULLIF($5, ''),
			updated_at = NOW()
		WHERE id = $1`,
		id, v.Code, v.ExpiresAt, v.LastSentAt, v.PendingEmail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkVerified flips the verified flag, promotes a pending email when present
// and clears the code fields in one statement.
func (r *PGRepository) MarkVerified(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			verified = TRUE,
			email = COALESCE(NULLIF(pending_email, ''), email),
			pending_email = NULL,
			verification_code = NULL,
			verification_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) found(row pgx.Row) (*User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user                      User
		email, course, code, pend *string
		expiresAt, lastSent       *time.Time
	)
	if err := row.Scan(
		&user.ID, &user.IDNumber, &email, &user.PasswordHash, &user.RoleID, &course,
		&user.Verified, &user.Disabled, &code, &expiresAt, &lastSent, &pend,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if email != nil {
		user.Email = *email
	}
	if course != nil {
		user.CourseID = *course
	}
	if code != nil || lastSent != nil {
		v := &Verification{}
		if code != nil {
			v.Code = *code
		}
		if expiresAt != nil {
			v.ExpiresAt = *expiresAt
		}
		if lastSent != nil {
			v.LastSentAt = *lastSent
		}
		if pend != nil {
			v.PendingEmail = *pend
		}
		user.Verification = v
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PGRepository)(nil)
