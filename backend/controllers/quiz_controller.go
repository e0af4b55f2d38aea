package controllers

import (
	"potatolearn/backend/middleware"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type QuizController struct {
	Quizzes *services.QuizService
}

func NewQuizController(quizzes *services.QuizService) *QuizController {
	return &QuizController{Quizzes: quizzes}
}

func (qc *QuizController) GetCourseQuizzes(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId", "course")
	if err != nil {
		return err
	}

	quizzes, err := qc.Quizzes.ListByCourse(c.UserContext(), courseID)
	if err != nil {
		return err
	}
	return utils.List(c, quizzes)
}

func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "quiz")
	if err != nil {
		return err
	}

	quiz, err := qc.Quizzes.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, quiz)
}

// CreateQuiz только владелец курса или админ
func (qc *QuizController) CreateQuiz(c *fiber.Ctx) error {
	var input services.CreateQuizInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	quiz, err := qc.Quizzes.Create(c.UserContext(), middleware.CurrentUser(c), input)
	if err != nil {
		return err
	}
	return utils.Created(c, quiz, "Quiz created successfully")
}

func (qc *QuizController) SubmitQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "quiz")
	if err != nil {
		return err
	}

	var input services.SubmitQuizInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	result, err := qc.Quizzes.Submit(c.UserContext(), middleware.CurrentUser(c), id, input)
	if err != nil {
		return err
	}

	message := "Quiz not passed"
	if result.Passed {
		message = "Quiz passed"
	}
	return utils.OK(c, result, message)
}
