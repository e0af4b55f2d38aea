package controllers

import (
	"potatolearn/backend/middleware"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// GetUsers godoc
// @Summary List users
// @Description Admin only. Optional exact role filter and case-insensitive search over name and email
// @Tags users
// @Produce json
// @Param role query string false "student, instructor or admin"
// @Param search query string false "substring of name or email"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users [get]
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	users, err := uc.Users.List(c.UserContext(), services.UserFilter{
		Role:   c.Query("role"),
		Search: c.Query("search"),
	})
	if err != nil {
		return err
	}
	return utils.List(c, users)
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return err
	}

	user, err := uc.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, user)
}

// UpdateUser godoc
// @Summary Update user
// @Description Self or admin. Email cannot be changed, role only by admin, password needs confirmPassword
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param input body services.UpdateUserInput true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/{id} [put]
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return err
	}

	var input services.UpdateUserInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	user, err := uc.Users.Update(c.UserContext(), middleware.CurrentUser(c), id, input)
	if err != nil {
		return err
	}
	return utils.OK(c, user, "User updated successfully")
}

// DeactivateUser мягкое удаление: аккаунт выключается, данные остаются
func (uc *UserController) DeactivateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return err
	}

	if _, err := uc.Users.SetActive(c.UserContext(), id, false); err != nil {
		return err
	}
	return utils.Message(c, fiber.StatusOK, "User deactivated successfully")
}

func (uc *UserController) SetActive(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return err
	}

	var input SetActiveRequest
	if err := c.BodyParser(&input); err != nil || input.Active == nil {
		return utils.ErrValidation("Invalid 'active' value")
	}

	user, err := uc.Users.SetActive(c.UserContext(), id, *input.Active)
	if err != nil {
		return err
	}

	message := "User deactivated successfully"
	if user.IsActive {
		message = "User activated successfully"
	}
	return utils.OK(c, user, message)
}
