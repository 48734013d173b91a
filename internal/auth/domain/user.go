package domain

import "time"

type UserID string

type RoleName string

const (
	RoleUser      RoleName = "ROLE_USER"
	RoleModerator RoleName = "ROLE_MODERATOR"
	RoleAdmin     RoleName = "ROLE_ADMIN"
)

type Role struct {
	ID   int32
	Name RoleName
}

type User struct {
	ID           UserID
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// Principal is the authenticated identity attached to a request's security
// context. It lives for one request only.
type Principal struct {
	UserID   UserID
	Username string
	Email    string
	Roles    []string
}
