// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role is a capability level carried in the JWT and checked by auth.RequireRole.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered player account.
//
// Players register either with a username/password or through GitHub OAuth.
// Both paths produce the same row; the internal ID is an xid string so our
// primary keys never depend on a third party's numbering scheme.
//
// WHY GitHubID *int64?
// Password accounts have no GitHub identity. A nullable pointer maps to NULL in
// SQLite, which keeps the UNIQUE constraint on github_id from colliding on zero.
//
// PasswordHash is never serialised; the json:"-" tag drops it from every response.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
