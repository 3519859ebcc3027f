package middleware

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"schooldesk_go/models"
	"schooldesk_go/services/activity"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (c *captured) Record(ctx context.Context, e activity.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func newApp(t *testing.T) (*fiber.App, *Auth, *store.Memory, *captured) {
	mem := store.NewMemory()
	auth := NewAuth("test-secret", time.Hour, mem, nil)
	rec := &captured{}

	app := fiber.New()
	app.Use(RequestID())
	app.Use(LoggerMiddleware())
	api := app.Group("/api", auth.JWTMiddleware(), LogActivityMiddleware(rec))
	api.Get("/me", func(c *fiber.Ctx) error {
		u, err := GetCurrentUser(c)
		if err != nil {
			return err
		}
		return c.SendString(u.Username)
	})
	api.Post("/auth/logout", func(c *fiber.Ctx) error {
		if err := auth.Logout(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	admin := api.Group("/admin", RequireAdmin())
	admin.Delete("/students/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app, auth, mem, rec
}

func createUser(t *testing.T, mem *store.Memory, username, role string) *models.User {
	u := &models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, mem.CreateUser(context.Background(), u))
	return u
}

func do(t *testing.T, app *fiber.App, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	return resp.StatusCode
}

func TestJWTMiddleware(t *testing.T) {
	app, auth, mem, _ := newApp(t)
	user := createUser(t, mem, "meera", models.RoleTeacher)
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", "/api/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", "/api/me", "garbage"))
	assert.Equal(t, fiber.StatusOK, do(t, app, "GET", "/api/me", token))
	assert.Equal(t, fiber.StatusOK, do(t, app, "GET", "/api/me?token="+token, ""))

	other := NewAuth("other-secret", time.Hour, mem, nil)
	forged, err := other.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", "/api/me", forged))

	user.IsActive = false
	require.NoError(t, mem.UpdateUser(context.Background(), user))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", "/api/me", token))
}

func TestLogoutRevokesToken(t *testing.T) {
	app, auth, mem, rec := newApp(t)
	user := createUser(t, mem, "meera", models.RoleTeacher)
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, do(t, app, "POST", "/api/auth/logout", token))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", "/api/me", token))
	assert.Empty(t, rec.entries)
}

func TestRequireRoleAndActivityLog(t *testing.T) {
	app, auth, mem, rec := newApp(t)
	teacher := createUser(t, mem, "meera", models.RoleTeacher)
	admin := createUser(t, mem, "root", models.RoleAdmin)
	teacherToken, err := auth.GenerateToken(teacher)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken(admin)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, do(t, app, "DELETE", "/api/admin/students/7", teacherToken))
	assert.Empty(t, rec.entries)

	assert.Equal(t, fiber.StatusOK, do(t, app, "DELETE", "/api/admin/students/7", adminToken))
	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "DELETE", e.Action)
	assert.Equal(t, "students", e.Resource)
	assert.Equal(t, uint(7), e.ResourceID)
	assert.Equal(t, admin.ID, e.UserID)
}

func TestResourceFromPath(t *testing.T) {
	assert.Equal(t, "fees", ResourceFromPath("/api/admin/fees/3/payments"))
	assert.Equal(t, "leaves", ResourceFromPath("/api/teacher/leaves"))
	assert.Equal(t, "notifications", ResourceFromPath("/api/notifications/4/read"))
	assert.Equal(t, "", ResourceFromPath("/"))
}
