package service

import (
	"context"
	"sort"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
)

// emitEvent appends to the event log. Failures are logged, never returned.
func (s *Service) emitEvent(ctx context.Context, kind string, payload map[string]any) {
	evt := models.Record{
		models.FieldID:        ids.NewID("evt"),
		"kind":                kind,
		"payload":             payload,
		models.FieldCreatedAt: s.clock.NowMS(),
	}
	if _, err := s.store.Upsert(ctx, ResourceEvents, evt); err != nil {
		s.log.Error("emit event failed", "kind", kind, "error", err)
	}
}

// notify appends a notification for userID. Failures are logged, never returned.
func (s *Service) notify(ctx context.Context, userID, title, body string, ref map[string]any) {
	if ref == nil {
		ref = map[string]any{}
	}
	n := models.Record{
		models.FieldID:        ids.NewID("ntf"),
		"user_id":             userID,
		"title":               title,
		"body":                body,
		"ref":                 ref,
		"seen":                false,
		models.FieldCreatedAt: s.clock.NowMS(),
	}
	if _, err := s.store.Upsert(ctx, ResourceNotifications, n); err != nil {
		s.log.Error("notify failed", "user_id", userID, "title", title, "error", err)
	}
}

// recipientMatches: a notification without user_id is a broadcast.
func recipientMatches(caller models.Identity, n models.Record) bool {
	v, ok := n["user_id"]
	if !ok || v == nil {
		return true
	}
	uid, isString := v.(string)
	return isString && uid == caller.ID
}

// FindNotifications returns the caller's and broadcast notifications, newest first.
func (s *Service) FindNotifications(ctx context.Context, where map[string]any, caller *models.Identity) ([]models.Record, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return nil, err
	}
	items := s.store.Find(ctx, ResourceNotifications, where)
	out := make([]models.Record, 0, len(items))
	for _, n := range items {
		if recipientMatches(*caller, n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Int64(models.FieldCreatedAt) > out[j].Int64(models.FieldCreatedAt)
	})
	return out, nil
}

// MarkNotificationsSeen marks the caller's visible notifications in ids (or
// all of them) as seen and returns how many changed.
func (s *Service) MarkNotificationsSeen(ctx context.Context, idList []string, all bool, caller *models.Identity) (int, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return 0, err
	}
	wanted := make(map[string]bool, len(idList))
	for _, id := range idList {
		wanted[id] = true
	}

	changed := 0
	err := s.store.Modify(ctx, ResourceNotifications, func(items []models.Record) ([]models.Record, bool) {
		now := s.clock.NowMS()
		for _, n := range items {
			if !recipientMatches(*caller, n) {
				continue
			}
			if !all && !wanted[n.ID()] {
				continue
			}
			if n.Bool("seen") {
				continue
			}
			n["seen"] = true
			n["seen_at"] = now
			n[models.FieldUpdatedAt] = now
			changed++
		}
		return items, changed > 0
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
