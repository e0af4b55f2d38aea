package middleware

import (
	"fmt"
	"slices"

	"potatolearn/backend/config"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const userKey = "user"

// CurrentUser возвращает пользователя, установленного Protect или OptionalAuth
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// Protect требует валидный токен и активный аккаунт
func Protect(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.ExtractToken(c)
		if token == "" {
			return utils.ErrUnauthorized("Not authorized to access this route")
		}

		claims, err := utils.ParseJWTToken(token, cfg)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrUnauthorized("User not found")
			}
			return utils.ErrInternal(err, "loading user for token")
		}

		if !user.IsActive {
			utils.ExpireTokenCookie(c)
			return utils.ErrForbidden("Account is deactivated")
		}

		c.Locals(userKey, &user)
		return c.Next()
	}
}

// OptionalAuth подставляет пользователя, если токен валиден, иначе просто продолжает
func OptionalAuth(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.ExtractToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := utils.ParseJWTToken(token, cfg)
		if err != nil {
			return c.Next()
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err == nil && user.IsActive {
			c.Locals(userKey, &user)
		}
		return c.Next()
	}
}

// Authorize пропускает только перечисленные роли. Ставится после Protect.
func Authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return utils.ErrUnauthorized("Not authorized to access this route")
		}
		if !slices.Contains(roles, user.Role) {
			return utils.ErrForbidden(fmt.Sprintf("User role %s is not authorized to access this route", user.Role))
		}
		return c.Next()
	}
}
