package rbac

import "time"

// Role represents a named bundle of permissions.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// Subject is the per-request authorization view of a user: the live role and
// permission set, resolved fresh so grants take effect immediately.
type Subject struct {
	UserID      int64
	Disabled    bool
	RoleID      int64
	RoleName    string
	Permissions []string
}

// Has reports whether the subject's role carries the permission.
func (s Subject) Has(permission string) bool {
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
