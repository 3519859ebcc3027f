package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schooldesk_go/services/activity"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// ActivityRecorder persists audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.Entry)
}

// RequestID tags every request with an id, honouring one sent by a proxy.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < 400 {
				status = fiber.StatusInternalServerError
			}
		}
		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		})
		if status >= 500 {
			entry.Error("HTTP Request")
		} else {
			entry.Info("HTTP Request")
		}
		return err
	}
}

// LogActivity records one user action against the current request.
func LogActivity(c *fiber.Ctx, rec ActivityRecorder, action, resource string, resourceID uint, details interface{}) {
	if rec == nil {
		return
	}
	var userID uint
	if user, err := GetCurrentUser(c); err == nil {
		userID = user.ID
	}
	now := time.Now()
	e := activity.Entry{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
		At:         now,
	}
	e.Details = map[string]interface{}{
		"original_details": details,
		"integrity_hash":   integrityHash(e),
		"request_id":       requestID(c),
		"forwarded_for":    c.Get("X-Forwarded-For"),
		"method":           c.Method(),
		"path":             c.Path(),
		"query":            string(c.Request().URI().QueryString()),
		"status_code":      c.Response().StatusCode(),
	}
	// the request context is gone once the handler returns
	rec.Record(context.Background(), e)
}

// integrityHash lets an auditor detect edits to an archived entry.
func integrityHash(e activity.Entry) string {
	data := fmt.Sprintf("%d:%s:%s:%d:%s:%s:%s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.IPAddress, e.UserAgent, e.At.UTC().Format(time.RFC3339))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
}

// ResourceFromPath maps /api/<role>/<resource>/... to <resource>.
func ResourceFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && parts[0] == "api" {
		parts = parts[1:]
	}
	if len(parts) > 0 {
		switch parts[0] {
		case "admin", "teacher", "student":
			parts = parts[1:]
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LogActivityMiddleware records every successful write outside /auth.
func LogActivityMiddleware(rec ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || strings.Contains(c.Path(), "/auth/") {
			return c.Next()
		}
		err := c.Next()

		var action string
		switch c.Method() {
		case fiber.MethodPost:
			action = "CREATE"
		case fiber.MethodPut, fiber.MethodPatch:
			action = "UPDATE"
		case fiber.MethodDelete:
			action = "DELETE"
		default:
			return err
		}

		var resourceID uint
		if id, perr := strconv.ParseUint(c.Params("id"), 10, 64); perr == nil {
			resourceID = uint(id)
		}
		if err == nil && c.Response().StatusCode() < 400 {
			LogActivity(c, rec, action, ResourceFromPath(c.Path()), resourceID, nil)
		}
		return err
	}
}
