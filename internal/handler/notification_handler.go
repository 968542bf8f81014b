package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	streamBuffer       = 16
	streamPingInterval = 25 * time.Second
)

// region --- DTOs ---

type NotificationResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	ActorID    uint              `json:"actor_id,omitempty"`
	TargetType string            `json:"target_type,omitempty"`
	TargetID   uint              `json:"target_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Message    string            `json:"message"`
	Read       bool              `json:"read"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PaginatedNotificationResponse defines the structure for a paginated list of notifications.
type PaginatedNotificationResponse struct {
	Data []NotificationResponse `json:"data"`
	Meta PaginationMeta         `json:"meta"`
}

type NotificationQuery struct {
	ListQuery
	Unread bool `form:"unread"`
}

type MarkReadRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=100,dive,len=24,hexadecimal"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// endregion

// NotificationHandler serves the notification inbox and its live stream.
type NotificationHandler struct {
	notifications *service.NotificationService
	hub           *hub.Hub
}

func NewNotificationHandler(notifications *service.NotificationService, h *hub.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: h}
}

// render localizes the notification text from its type and stored data.
func render(c *gin.Context, n models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID.Hex(),
		Type:       string(n.Type),
		ActorID:    n.ActorID,
		TargetType: n.TargetType,
		TargetID:   n.TargetID,
		Data:       n.Data,
		Message:    i18n.T(c, "notification."+string(n.Type), n.Data),
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

// ListNotifications godoc
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread query     bool  false  "Only unread"
// @Param        page   query     int   false  "Page number" default(1)
// @Param        limit  query     int   false  "Items per page" default(20)
// @Success      200    {object}  PaginatedNotificationResponse
// @Failure      401    {object}  ErrorResponse
// @Router       /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var q NotificationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.notifications.List(c.Request.Context(), auth.UserID(c), q.Unread, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, func(n models.Notification) NotificationResponse { return render(c, n) }))
}

// UnreadCount godoc
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CountResponse
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// MarkRead godoc
// @Summary      Mark notifications read
// @Description  Unknown or foreign ids are ignored. The response counts the notifications changed.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      MarkReadRequest true "Notification ids"
// @Success      200   {object}  CountResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /notifications/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), auth.UserID(c), req.IDs)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// MarkAllRead godoc
// @Summary      Mark every notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CountResponse
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "notification")
}

// Stream godoc
// @Summary      Live notifications
// @Description  Server-Sent Events stream. A "ready" event reports the open stream count, then each "notification" event carries a NotificationResponse.
// @Tags         notifications
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  NotificationResponse
// @Router       /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := auth.UserID(c)
	client := make(hub.Client, streamBuffer)
	h.hub.Subscribe(userID, client)
	defer h.hub.Unsubscribe(userID, client)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	ctx := c.Request.Context()

	c.SSEvent("ready", gin.H{"streams": h.hub.Connected(userID)})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ping.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case message, ok := <-client:
			if !ok {
				return false
			}
			event, err := hub.Decode(message)
			if err != nil || event.Type != hub.EventNotification {
				return true
			}
			var n service.NotificationEvent
			if err := json.Unmarshal(event.Payload, &n); err != nil {
				return true
			}
			c.SSEvent(hub.EventNotification, renderEvent(c, n))
			return true
		}
	})
}

func renderEvent(c *gin.Context, e service.NotificationEvent) NotificationResponse {
	return NotificationResponse{
		ID:         e.ID,
		Type:       string(e.Type),
		ActorID:    e.ActorID,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Data:       e.Data,
		Message:    i18n.T(c, "notification."+string(e.Type), e.Data),
		CreatedAt:  e.CreatedAt,
	}
}
