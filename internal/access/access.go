// Package access narrows what a caller may see or change, by role and by the
// owner_user_id stamped on ownable records.
package access

import (
	"errors"
	"fmt"

	"github.com/hongminglow/record-archive/internal/models"
)

var (
	// ErrNotAuthenticated means no caller identity was established.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden means the caller lacks the role or ownership for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrBadCredentials is returned by login for an unknown email or wrong password.
	ErrBadCredentials = fmt.Errorf("%w: bad credentials", ErrNotAuthenticated)
)

// Ownable resources are scoped per owner.
var ownable = map[string]bool{
	"stores":          true,
	"products":        true,
	"categories":      true,
	"orders":          true,
	"stock_movements": true,
}

// Append-only resources reject mutation of existing records.
var appendOnly = map[string]bool{
	"events": true,
}

// Admin-only resources accept generic writes from admins alone; their own
// operations (settings, registration) apply narrower rules.
var adminOnly = map[string]bool{
	"users":           true,
	"system_settings": true,
}

// Role sets used to gate operations.
var (
	AnyRole = models.AllRoles
	Writers = []string{models.RoleAdmin, models.RoleOwner}
	Admins  = []string{models.RoleAdmin}
)

// IsOwnable reports whether resource is subject to owner scoping.
func IsOwnable(resource string) bool {
	return ownable[resource]
}

// RequireRole checks that caller exists and holds one of roles.
func RequireRole(caller *models.Identity, roles ...string) error {
	if caller == nil {
		return ErrNotAuthenticated
	}
	for _, r := range roles {
		if caller.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q not permitted", ErrForbidden, caller.Role)
}

func scoped(caller models.Identity, resource string) bool {
	return caller.Role == models.RoleOwner && ownable[resource]
}

// ownedByOther reports a foreign owner_user_id. Absent or null means global.
func ownedByOther(caller models.Identity, rec models.Record) bool {
	owner, ok := rec[models.FieldOwner]
	if !ok || owner == nil {
		return false
	}
	s, isString := owner.(string)
	return !isString || s != caller.ID
}

// Visible reports whether caller may see rec of resource.
func Visible(caller models.Identity, resource string, rec models.Record) bool {
	return !scoped(caller, resource) || !ownedByOther(caller, rec)
}

// FilterVisible drops the records caller may not see.
func FilterVisible(caller models.Identity, resource string, items []models.Record) []models.Record {
	if !scoped(caller, resource) {
		return items
	}
	out := make([]models.Record, 0, len(items))
	for _, it := range items {
		if !ownedByOther(caller, it) {
			out = append(out, it)
		}
	}
	return out
}

// CheckRead rejects a direct read of a record owned by someone else.
func CheckRead(caller models.Identity, resource string, rec models.Record) error {
	if !Visible(caller, resource, rec) {
		return fmt.Errorf("%w: %s %s belongs to another owner", ErrForbidden, resource, rec.ID())
	}
	return nil
}

// CheckWrite validates a mutation of existing, which is nil when the write
// creates a new record.
func CheckWrite(caller models.Identity, resource string, existing models.Record) error {
	if adminOnly[resource] && caller.Role != models.RoleAdmin {
		return fmt.Errorf("%w: %s is writable by admins only", ErrForbidden, resource)
	}
	if existing == nil {
		return nil
	}
	if appendOnly[resource] {
		return fmt.Errorf("%w: %s is append-only", ErrForbidden, resource)
	}
	if scoped(caller, resource) && ownedByOther(caller, existing) {
		return fmt.Errorf("%w: %s %s belongs to another owner", ErrForbidden, resource, existing.ID())
	}
	return nil
}

// StampOwner force-writes the caller's id as owner for owner-role writes.
func StampOwner(caller models.Identity, resource string, payload models.Record) {
	if scoped(caller, resource) {
		payload[models.FieldOwner] = caller.ID
	}
}
