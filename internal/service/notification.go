package service

import (
	"context"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/observability"
	"gamehub/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NotifyInput describes a notification to deliver.
type NotifyInput struct {
	RecipientID uint
	ActorID     uint
	Type        models.NotificationType
	TargetType  string
	TargetID    uint
	Data        map[string]string
}

// Notifier delivers notifications. Delivery never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, NotifyInput) {}

// Publisher pushes a hub event envelope to a user's live streams.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload []byte) error
}

// NotificationEvent is the live-stream payload of a stored notification.
type NotificationEvent struct {
	ID         string                  `json:"id"`
	Type       models.NotificationType `json:"type"`
	ActorID    uint                    `json:"actor_id"`
	TargetType string                  `json:"target_type,omitempty"`
	TargetID   uint                    `json:"target_id,omitempty"`
	Data       map[string]string       `json:"data,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

type NotificationService struct {
	store     repository.NotificationStore
	relations *repository.RelationRepository
	publisher Publisher
	log       *zap.Logger
}

func NewNotificationService(store repository.NotificationStore, relations *repository.RelationRepository, publisher Publisher, log *zap.Logger) *NotificationService {
	return &NotificationService{store: store, relations: relations, publisher: publisher, log: log}
}

// Notify stores the notification and pushes it to the recipient's streams.
// Self notifications and notifications across a block are dropped.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) {
	if in.RecipientID == 0 || in.RecipientID == in.ActorID {
		return
	}
	log := s.log.With(zap.Uint("recipient_id", in.RecipientID), zap.String("type", string(in.Type)))

	if in.ActorID != 0 {
		blocked, err := s.relations.IsBlockedEither(ctx, in.RecipientID, in.ActorID)
		if err != nil {
			log.Warn("notification block check failed", zap.Error(err))
			return
		}
		if blocked {
			return
		}
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		ActorID:     in.ActorID,
		Type:        in.Type,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Data:        in.Data,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, n); err != nil {
		log.Error("failed to store notification", zap.Error(err))
		return
	}
	observability.NotificationsSentTotal.WithLabelValues(string(in.Type)).Inc()

	if s.publisher == nil {
		return
	}
	payload, err := hub.Encode(hub.EventNotification, NotificationEvent{
		ID:         n.ID.Hex(),
		Type:       n.Type,
		ActorID:    n.ActorID,
		TargetType: n.TargetType,
		TargetID:   n.TargetID,
		Data:       n.Data,
		CreatedAt:  n.CreatedAt,
	})
	if err != nil {
		log.Error("failed to encode notification event", zap.Error(err))
		return
	}
	if err := s.publisher.PublishUser(ctx, in.RecipientID, payload); err != nil {
		log.Warn("failed to publish notification", zap.Error(err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) (*repository.Page[models.Notification], error) {
	page, limit = repository.NormalizePage(page, limit)
	items, total, err := s.store.List(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, err
	}
	return &repository.Page[models.Notification]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks the user's notifications with the given hex ids as read.
// Malformed ids are ignored like foreign ones.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []string) (int64, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, raw := range ids {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			objectIDs = append(objectIDs, id)
		}
	}
	return s.store.MarkRead(ctx, userID, objectIDs)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID uint, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("notification")
	}
	return s.store.Delete(ctx, userID, objectID)
}
