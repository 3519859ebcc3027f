package controllers

import (
	"schooldesk_go/middleware"
	"schooldesk_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route. It runs
// after JWTMiddleware, which accepts the token as ?token= for browsers.
func (wsc *WebSocketController) RequireUpgrade(c *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "Use the WebSocket endpoint: ws://<host>/ws?token=YOUR_JWT",
		})
	}
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals("ws_user_id", user.ID)
	return c.Next()
}

// WebSocketHandler connects an authenticated socket to the hub
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		userID, _ := c.Locals("ws_user_id").(uint)
		if userID == 0 {
			_ = c.WriteMessage(fiberws.CloseMessage, []byte("Unauthorized"))
			_ = c.Close()
			return
		}
		logrus.WithField("user_id", userID).Debug("WebSocket connection established")
		wsc.hub.ServeFiberWS(c, userID)
	})
}

// GetWebSocketStats returns WebSocket connection statistics (admin only)
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.GetClientCount(),
		"status":            "active",
	})
}

type announcementRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Announce pushes a transient announcement to every connected client (admin only)
func (wsc *WebSocketController) Announce(c *fiber.Ctx) error {
	var req announcementRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Message == "" {
		return badRequest(c, "message is required")
	}
	wsc.hub.Broadcast(websocket.Message{Type: "announcement", Data: req})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Announcement sent",
		"recipients": wsc.hub.GetClientCount(),
	})
}
