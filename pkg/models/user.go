package models

// Role of a dashboard user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID       int64  `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Role     Role   `json:"role" yaml:"role"`
}

// Credentials is the body for POST /api/auth/login and /api/auth/register
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse captures the user returned by the login endpoint.
type LoginResponse struct {
	User User `json:"user"`
}

// RegisterResponse is returned by POST /api/auth/register. AutoLogin is set
// when the server already opened a session for the new user.
type RegisterResponse struct {
	User      User `json:"user"`
	AutoLogin bool `json:"auto_login"`
}

// SetupStatus is returned by GET /api/setup/status
type SetupStatus struct {
	SetupRequired bool `json:"setup_required"`
}

// AuthStatus is returned by GET /api/auth/status
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}
