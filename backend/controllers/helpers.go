package controllers

import (
	"strconv"

	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// paramID разбирает числовой параметр пути
func paramID(c *fiber.Ctx, name, entity string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.ErrValidation("Invalid " + entity + " ID")
	}
	return uint(id), nil
}
