package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryNotificationStore keeps notifications in process memory. It backs
// development setups without MongoDB and service tests.
type memoryNotificationStore struct {
	mu    sync.Mutex
	items []models.Notification
}

func NewMemoryNotificationStore() NotificationStore {
	return &memoryNotificationStore{}
}

func (s *memoryNotificationStore) Insert(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, *n)
	return nil
}

func (s *memoryNotificationStore) List(_ context.Context, recipientID uint, unreadOnly bool, page, limit int) ([]models.Notification, int64, error) {
	page, limit = NormalizePage(page, limit)
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Notification
	for _, n := range s.items {
		if n.RecipientID == recipientID && (!unreadOnly || !n.Read) {
			matched = append(matched, n)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Notification{}, total, nil
	}
	end := min(start+limit, len(matched))
	return matched[start:end], total, nil
}

func (s *memoryNotificationStore) CountUnread(_ context.Context, recipientID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.RecipientID == recipientID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (s *memoryNotificationStore) MarkRead(_ context.Context, recipientID uint, ids []primitive.ObjectID) (int64, error) {
	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.markRead(recipientID, func(n models.Notification) bool { return wanted[n.ID] }), nil
}

func (s *memoryNotificationStore) MarkAllRead(_ context.Context, recipientID uint) (int64, error) {
	return s.markRead(recipientID, func(models.Notification) bool { return true }), nil
}

func (s *memoryNotificationStore) markRead(recipientID uint, match func(models.Notification) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var changed int64
	for i := range s.items {
		n := &s.items[i]
		if n.RecipientID == recipientID && !n.Read && match(*n) {
			n.Read = true
			n.ReadAt = &now
			changed++
		}
	}
	return changed
}

func (s *memoryNotificationStore) Delete(_ context.Context, recipientID uint, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id && n.RecipientID == recipientID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("notification")
}
