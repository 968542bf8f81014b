package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationFollow         NotificationType = "follow"
	NotificationComment        NotificationType = "comment"
	NotificationReply          NotificationType = "reply"
	NotificationPostLike       NotificationType = "post_like"
	NotificationReportResolved NotificationType = "report_resolved"
)

// Notification is stored in MongoDB. Data carries the values rendered into
// the localized message (actor name, post title, ...).
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RecipientID uint               `bson:"recipient_id"`
	ActorID     uint               `bson:"actor_id"`
	Type        NotificationType   `bson:"type"`
	TargetType  string             `bson:"target_type,omitempty"`
	TargetID    uint               `bson:"target_id,omitempty"`
	Data        map[string]string  `bson:"data,omitempty"`
	Read        bool               `bson:"read"`
	ReadAt      *time.Time         `bson:"read_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}
