package domain

import "time"

// Role is the marketplace role assigned to an account.
type Role string

const (
	RoleBuyer           Role = "buyer"
	RoleSupplier        Role = "supplier"
	RoleServiceProvider Role = "serviceProvider"
	RoleAdmin           Role = "admin"
	RoleHybrid          Role = "hybrid"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleServiceProvider, RoleAdmin, RoleHybrid:
		return true
	}
	return false
}

// Satisfies reports whether an account holding r may act as required.
// A hybrid account acts as both buyer and supplier.
func (r Role) Satisfies(required Role) bool {
	if r == required {
		return true
	}
	return r == RoleHybrid && (required == RoleBuyer || required == RoleSupplier)
}

// User models the authenticated account as returned by the backend's /me endpoint.
type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email,omitempty"`
	DisplayName          string    `json:"display_name,omitempty"`
	CompanyName          string    `json:"company_name,omitempty"`
	Role                 Role      `json:"role"`
	RegistrationComplete bool      `json:"registration_complete"`
	Verified             bool      `json:"verified"`
	CompletedSteps       []string  `json:"completed_steps,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasRole reports whether the user may act as any of the given roles.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role.Satisfies(r) {
			return true
		}
	}
	return false
}

// Progress derives the registration progress from the completed step slugs.
func (u *User) Progress() RegistrationProgress {
	if u == nil {
		return NewRegistrationProgress(nil)
	}
	if u.RegistrationComplete {
		return CompleteRegistrationProgress()
	}
	return NewRegistrationProgress(u.CompletedSteps)
}
