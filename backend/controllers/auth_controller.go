package controllers

import (
	"potatolearn/backend/config"
	"potatolearn/backend/middleware"
	"potatolearn/backend/models"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Users *services.UserService
	Cfg   *config.Config
}

func NewAuthController(users *services.UserService, cfg *config.Config) *AuthController {
	return &AuthController{Users: users, Cfg: cfg}
}

type AuthUser struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

type AuthResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    AuthUser `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates a student or instructor account and starts a session
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "User registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	user, err := ac.Users.Register(c.UserContext(), input)
	if err != nil {
		return err
	}

	return ac.sendToken(c, fiber.StatusCreated, user)
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token, also set as httpOnly cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginInput true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	user, err := ac.Users.Authenticate(c.UserContext(), input)
	if err != nil {
		return err
	}

	return ac.sendToken(c, fiber.StatusOK, user)
}

// Me godoc
// @Summary Current user
// @Description Returns the authenticated user with enrolled, completed and bookmarked courses
// @Tags auth
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (ac *AuthController) Me(c *fiber.Ctx) error {
	profile, err := ac.Users.Profile(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return utils.OK(c, profile)
}

// Logout сбрасывает cookie, токен из заголовка клиент забывает сам
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	utils.ExpireTokenCookie(c)
	return utils.Message(c, fiber.StatusOK, "Logged out successfully")
}

func (ac *AuthController) sendToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateJWTToken(user.ID, user.Role, ac.Cfg)
	if err != nil {
		return utils.ErrInternal(err, "signing token")
	}

	utils.SetTokenCookie(c, token, ac.Cfg)

	return c.Status(status).JSON(AuthResponse{
		Success: true,
		Token:   token,
		User: AuthUser{
			ID:             user.ID,
			Name:           user.Name,
			Email:          user.Email,
			Role:           user.Role,
			ProfilePicture: user.ProfilePicture,
		},
	})
}
