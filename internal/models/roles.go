package models

// Caller roles.
const (
	RoleAdmin       = "admin"
	RoleOwner       = "owner"
	RoleCustomer    = "customer"
	RoleIDFCustomer = "idf_customer"
)

// AllRoles lists every role a caller may hold.
var AllRoles = []string{RoleAdmin, RoleOwner, RoleCustomer, RoleIDFCustomer}

// ValidRole reports whether role is one of AllRoles.
func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
