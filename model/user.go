package model

import "time"

// Role is the enumerated capability tag carried by every user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleUser       Role = "user"
	RoleGuest      Role = "guest"
	RoleCEO        Role = "ceo"
)

// IsAdministrative reports whether the role bypasses company/department
// scoping everywhere in the security core.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Companies   []Company    `json:"companies"`
	Departments []Department `json:"departments"`
	CreatedAt   time.Time    `json:"created_at"`
}

// IsAdmin reports whether the user holds an administrative capability.
func (u User) IsAdmin() bool {
	return u.Role.IsAdministrative()
}

// CompanyNames returns the names of the user's company memberships.
func (u User) CompanyNames() []string {
	names := make([]string, 0, len(u.Companies))
	for _, c := range u.Companies {
		names = append(names, c.Name)
	}
	return names
}

// DepartmentNames returns the names of the user's department memberships.
func (u User) DepartmentNames() []string {
	names := make([]string, 0, len(u.Departments))
	for _, d := range u.Departments {
		names = append(names, d.Name)
	}
	return names
}

type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Department belongs to exactly one company. Used only as a scoping tag.
type Department struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CompanyID string `json:"company_id"`
}
