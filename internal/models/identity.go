package models

// Identity is the authenticated (or bypassed) caller of an operation.
type Identity struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// DevAdmin is the identity every request assumes when authentication is disabled.
var DevAdmin = Identity{
	ID:          "dev_admin",
	Role:        RoleAdmin,
	Email:       "dev@local",
	DisplayName: "Dev Admin",
}

// IdentityFromUser projects a users record onto an Identity.
func IdentityFromUser(u Record) Identity {
	return Identity{
		ID:          u.ID(),
		Role:        u.String("role"),
		Email:       u.String("email"),
		DisplayName: u.String("display_name"),
	}
}
