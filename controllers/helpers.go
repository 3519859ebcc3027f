package controllers

import (
	"strconv"
	"strings"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/middleware"
	"schooldesk_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindInvalidAmount, apperrors.KindOverpaymentRejected,
		apperrors.KindInvalidStatusTransition, apperrors.KindValidationFailed:
		return fiber.StatusBadRequest
	case apperrors.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperrors.KindForbidden:
		return fiber.StatusForbidden
	case apperrors.KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes {error, kind, remaining_balance?}. Internal failures are
// logged with their cause and reported with the generic message only.
func respondError(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	appErr := apperrors.As(err)
	if appErr == nil {
		appErr = &apperrors.Error{Kind: apperrors.KindInternal, Message: "Internal server error"}
	}
	status := StatusFor(appErr.Kind)
	if status >= 500 {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
	}
	body := fiber.Map{"error": appErr.Message, "kind": appErr.Kind}
	if appErr.Remaining != nil {
		body["remaining_balance"] = *appErr.Remaining
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the Fiber app error handler; errors escaping middleware get
// the same body shape as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, apperrors.Validation("%s", msg))
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid %s", name)
	}
	return uint(id), nil
}

func queryUint(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation("Invalid %s", name)
	}
	return uint(id), nil
}

// optionalDate parses YYYY-MM-DD or RFC3339; blank means nil.
func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryDate(c *fiber.Ctx, name string) (*time.Time, error) {
	return optionalDate(c.Query(name))
}

// currentUserID is the authenticated user's id; routes guarantee one exists.
func currentUserID(c *fiber.Ctx) uint {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return 0
	}
	return user.ID
}

func sendXLSX(c *fiber.Ctx, name string, body []byte) error {
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(body)
}
