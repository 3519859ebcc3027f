package controllers

import (
	"schooldesk_go/services/notifications"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	notifications *notifications.Service
}

func NewNotificationController(n *notifications.Service) *NotificationController {
	return &NotificationController{notifications: n}
}

// GetNotifications returns notifications for the current user
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	rows, unread, err := nc.notifications.List(c.UserContext(), currentUserID(c), c.QueryBool("unread"), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": rows, "unread_count": unread})
}

// MarkAsRead marks one of the current user's notifications as read
func (nc *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := nc.notifications.MarkRead(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (nc *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	if err := nc.notifications.MarkAllRead(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}

type broadcastRequest struct {
	UserIDs []uint `json:"user_ids"`
	notifications.Notice
}

// SendNotification lets an admin notify a list of users
func (nc *NotificationController) SendNotification(c *fiber.Ctx) error {
	var req broadcastRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if len(req.UserIDs) == 0 || req.Title == "" || req.Message == "" {
		return badRequest(c, "user_ids, title and message are required")
	}
	if err := nc.notifications.EnqueueOrCreate(c.UserContext(), req.UserIDs, req.Notice); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Notification queued", "recipients": len(req.UserIDs)})
}
