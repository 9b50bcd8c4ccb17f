package models

// Role identifies the kind of authenticated identity
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleParent Role = "parent"
	RoleSchool Role = "school"
	RoleChild  Role = "child"
)

// Principal is the identity resolved by a successful login
type Principal struct {
	Role        Role     `json:"role"`
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name"`
	Username    string   `json:"username,omitempty"`
	Year        string   `json:"year,omitempty"`
	YearGroup   *int     `json:"yearGroup,omitempty"`
	Children    []string `json:"children,omitempty"`
	MaxChildren *int     `json:"maxChildren,omitempty"`
}

// IsAdmin reports whether the principal is the static administrator
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Subject returns the stable identifier used in session tokens and authorization
func (p *Principal) Subject() string {
	if p.Role == RoleChild {
		return p.Username
	}
	return p.Email
}
