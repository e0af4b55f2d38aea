package controllers

import (
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// DebugController служебные ручки для админа
type DebugController struct {
	Quizzes *services.QuizService
}

func NewDebugController(quizzes *services.QuizService) *DebugController {
	return &DebugController{Quizzes: quizzes}
}

func (dc *DebugController) ListQuizzes(c *fiber.Ctx) error {
	quizzes, err := dc.Quizzes.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return utils.List(c, quizzes)
}

func (dc *DebugController) RepairQuizzes(c *fiber.Ctx) error {
	result, err := dc.Quizzes.Repair(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Quiz repair finished",
		"repairedCount": result.RepairedCount,
		"repaired":      result.Repaired,
	})
}
