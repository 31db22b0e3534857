package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/models"
)

// userSecrets are hidden from non-admin readers of the users resource.
var userSecrets = []string{"password", "token"}

// Find returns the records of resource matching where that caller may see.
func (s *Service) Find(ctx context.Context, resource string, where map[string]any, caller *models.Identity) ([]models.Record, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return nil, err
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}
	if err := checkFilter(*caller, resource, where); err != nil {
		return nil, err
	}
	items := access.FilterVisible(*caller, resource, s.store.Find(ctx, resource, where))
	return redact(*caller, resource, items), nil
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, resource, id string, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return nil, err
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, resource, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", resource, id, err)
	}
	if err := access.CheckRead(*caller, resource, rec); err != nil {
		return nil, err
	}
	return redact(*caller, resource, []models.Record{rec})[0], nil
}

// Create persists payload as a new record, or replaces the record whose id it carries.
func (s *Service) Create(ctx context.Context, resource string, payload map[string]any, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.Writers...); err != nil {
		return nil, err
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}
	rec := cleanPayload(payload)
	access.StampOwner(*caller, resource, rec)

	if err := access.CheckWrite(*caller, resource, nil); err != nil {
		return nil, err
	}
	id := rec.ID()
	if id == "" {
		return s.store.Upsert(ctx, resource, rec)
	}
	return s.store.Update(ctx, resource, id, func(existing models.Record) (models.Record, error) {
		if err := access.CheckWrite(*caller, resource, existing); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// Update merges payload into the record with id, creating it when absent.
func (s *Service) Update(ctx context.Context, resource, id string, payload map[string]any, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.Writers...); err != nil {
		return nil, err
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	patch := cleanPayload(payload)
	access.StampOwner(*caller, resource, patch)

	return s.store.Update(ctx, resource, id, func(existing models.Record) (models.Record, error) {
		if err := access.CheckWrite(*caller, resource, existing); err != nil {
			return nil, err
		}
		merged := existing
		if merged == nil {
			merged = models.Record{}
		}
		merged.Merge(patch)
		return merged, nil
	})
}

// Delete removes the record with id. A missing record reports false.
func (s *Service) Delete(ctx context.Context, resource, id string, caller *models.Identity) (bool, error) {
	if err := access.RequireRole(caller, access.Writers...); err != nil {
		return false, err
	}
	if err := validateResource(resource); err != nil {
		return false, err
	}
	if err := access.CheckWrite(*caller, resource, nil); err != nil {
		return false, err
	}

	var (
		deleted bool
		denied  error
	)
	err := s.store.Modify(ctx, resource, func(items []models.Record) ([]models.Record, bool) {
		for i, it := range items {
			if id == "" || it.ID() != id {
				continue
			}
			if denied = access.CheckWrite(*caller, resource, it); denied != nil {
				return items, false
			}
			deleted = true
			return append(items[:i], items[i+1:]...), true
		}
		return items, false
	})
	if denied != nil {
		return false, denied
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// cleanPayload copies payload without the timestamps the store manages.
func cleanPayload(payload map[string]any) models.Record {
	rec := models.Record(payload).Clone()
	delete(rec, models.FieldCreatedAt)
	delete(rec, models.FieldUpdatedAt)
	return rec
}

// checkFilter keeps non-admin callers from probing hidden user fields
// through equality filters.
func checkFilter(caller models.Identity, resource string, where map[string]any) error {
	if resource != ResourceUsers || caller.Role == models.RoleAdmin {
		return nil
	}
	for _, k := range userSecrets {
		if _, ok := where[k]; ok {
			return fmt.Errorf("filter on users.%s: %w", k, access.ErrForbidden)
		}
	}
	return nil
}

func redact(caller models.Identity, resource string, items []models.Record) []models.Record {
	if resource != ResourceUsers || caller.Role == models.RoleAdmin {
		return items
	}
	out := make([]models.Record, len(items))
	for i, it := range items {
		c := it.Clone()
		for _, k := range userSecrets {
			delete(c, k)
		}
		out[i] = c
	}
	return out
}
