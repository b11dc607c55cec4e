package users

import "time"

// User represents a user account for administration.
type User struct {
	ID        int64
	IDNumber  string
	Email     string
	CourseID  string
	RoleID    int64
	RoleName  string
	Verified  bool
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
