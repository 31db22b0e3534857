package service

import (
	"context"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/models"
)

const (
	settingsID         = "system"
	settingAutoApprove = "order_auto_approve"
)

func defaultSettings() models.Record {
	return models.Record{
		models.FieldID:     settingsID,
		settingAutoApprove: false,
	}
}

func (s *Service) loadSettings(ctx context.Context) models.Record {
	rec, err := s.store.Get(ctx, ResourceSettings, settingsID)
	if err != nil {
		return defaultSettings()
	}
	return rec
}

// GetSettings returns the process-wide settings record.
func (s *Service) GetSettings(ctx context.Context, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return nil, err
	}
	return s.loadSettings(ctx), nil
}

// PutSettings merges patch into the settings record. Admin only.
func (s *Service) PutSettings(ctx context.Context, patch map[string]any, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.Admins...); err != nil {
		return nil, err
	}
	clean := cleanPayload(patch)
	return s.store.Update(ctx, ResourceSettings, settingsID, func(cur models.Record) (models.Record, error) {
		if cur == nil {
			cur = defaultSettings()
		}
		cur.Merge(clean)
		return cur, nil
	})
}

func (s *Service) autoApprove(ctx context.Context) bool {
	return s.loadSettings(ctx).Bool(settingAutoApprove)
}
