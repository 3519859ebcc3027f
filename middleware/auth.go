package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// TokenBlacklist remembers logged-out token IDs until they would have expired
// anyway. Without Redis it falls back to process memory.
type TokenBlacklist struct {
	redis *redis.Client
	mu    sync.Mutex
	local map[string]time.Time
}

func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redis: rdb, local: map[string]time.Time{}}
}

func blacklistKey(jti string) string { return "jwt:blacklist:" + jti }

func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return nil
	}
	if b.redis != nil {
		return b.redis.Set(ctx, blacklistKey(jti), "1", ttl).Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for k, exp := range b.local {
		if now.After(exp) {
			delete(b.local, k)
		}
	}
	b.local[jti] = expiresAt
	return nil
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	if b.redis != nil {
		n, err := b.redis.Exists(ctx, blacklistKey(jti)).Result()
		return err == nil && n > 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.local[jti]
	return ok && time.Now().Before(exp)
}

// Auth issues and verifies HS256 tokens.
type Auth struct {
	secret    []byte
	expiresIn time.Duration
	users     UserLookup
	revoked   *TokenBlacklist
}

func NewAuth(secret string, expiresIn time.Duration, users UserLookup, revoked *TokenBlacklist) *Auth {
	if revoked == nil {
		revoked = NewTokenBlacklist(nil)
	}
	return &Auth{secret: []byte(secret), expiresIn: expiresIn, users: users, revoked: revoked}
}

// GenerateToken creates a new JWT token for a user
func (a *Auth) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates signature, expiry and revocation.
func (a *Auth) ParseToken(ctx context.Context, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if a.revoked.IsRevoked(ctx, claims.ID) {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}

// Logout revokes the token carried by the current request.
func (a *Auth) Logout(c *fiber.Ctx) error {
	claims, err := GetCurrentClaims(c)
	if err != nil {
		return err
	}
	exp := time.Now().Add(a.expiresIn)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return a.revoked.Revoke(c.UserContext(), claims.ID, exp)
}

// tokenFromRequest reads "Authorization: Bearer <token>", or the token query
// parameter for websocket clients that cannot set headers.
func tokenFromRequest(c *fiber.Ctx) (string, string) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return "", "Invalid authorization header format"
		}
		return tokenString, ""
	}
	if q := c.Query("token"); q != "" {
		return q, ""
	}
	return "", "Missing authorization header"
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"kind":  apperrors.KindUnauthorized,
	})
}

// JWTMiddleware validates JWT tokens
func (a *Auth) JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			return unauthorized(c, problem)
		}
		claims, err := a.ParseToken(c.UserContext(), tokenString)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		// Verify user still exists and is active
		user, err := a.users.GetUser(c.UserContext(), claims.UserID)
		if err != nil || !user.IsActive {
			return unauthorized(c, "User not found or inactive")
		}

		c.Locals("user", user)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok {
			return unauthorized(c, "Missing user claims")
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
			"kind":  apperrors.KindForbidden,
		})
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}

// RequireTeacherOrAdmin middleware allows teacher or admin
func RequireTeacherOrAdmin() fiber.Handler {
	return RequireRole(models.RoleTeacher, models.RoleAdmin)
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found in context")
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}
