package models

// Role is the access level of a logged-in user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleGuest    Role = "guest"
)

// User is the session record mirrored to the local session file.
type User struct {
	Email    string `yaml:"email" json:"email"`
	Role     Role   `yaml:"role" json:"role"`
	Username string `yaml:"username" json:"username"`
}

// IsZero reports whether the record carries no identity at all.
func (u User) IsZero() bool {
	return u.Email == "" && u.Username == "" && u.Role == ""
}
