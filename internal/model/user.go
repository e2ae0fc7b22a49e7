package model

import "strings"

// Role is the closed set of roles a user may hold
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// ParseRole normalizes a raw role code (trim, lower-case) and reports
// whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return r, true
	}
	return r, false
}

// User represents one credential record in the store
type User struct {
	Username           string        `json:"username"`
	DisplayName        string        `json:"displayName"`
	Email              *string       `json:"email,omitempty"`
	PasswordHash       string        `json:"-"` // never expose password hash
	PasswordAlgo       HashAlgorithm `json:"-"`
	Role               Role          `json:"role"`
	IsActive           bool          `json:"isActive"`
	MustChangePassword bool          `json:"mustChangePassword"`
}

// Snapshot returns the user's observable profile fields for audit capture.
// Password material is deliberately excluded.
func (u *User) Snapshot() map[string]any {
	var email any
	if u.Email != nil {
		email = *u.Email
	}
	return map[string]any{
		"username":     u.Username,
		"display_name": u.DisplayName,
		"email":        email,
		"role_code":    string(u.Role),
		"is_active":    u.IsActive,
	}
}
