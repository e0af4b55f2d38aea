package controllers

import (
	"math"
	"strconv"

	"potatolearn/backend/middleware"
	"potatolearn/backend/models"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CoursesController struct {
	Courses *services.CourseService
}

func NewCoursesController(courses *services.CourseService) *CoursesController {
	return &CoursesController{Courses: courses}
}

type RateRequest struct {
	Rating interface{} `json:"rating"`
}

// GetCourses список курсов. Неопубликованные видят только админы и преподаватели по запросу.
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	filter := services.CourseFilter{Search: c.Query("search")}

	if instructor := c.Query("instructor"); instructor != "" {
		id, err := strconv.ParseUint(instructor, 10, 64)
		if err != nil {
			return utils.ErrValidation("Invalid instructor ID")
		}
		filter.InstructorID = uint(id)
	}

	if c.QueryBool("includeUnpublished") {
		if user := middleware.CurrentUser(c); user != nil && user.Role != models.RoleStudent {
			filter.IncludeUnpublished = true
		}
	}

	courses, err := cc.Courses.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return utils.List(c, courses)
}

func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return err
	}

	course, userRating, err := cc.Courses.Get(c.UserContext(), id, middleware.CurrentUser(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       course,
		"userRating": userRating,
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input services.CreateCourseInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	course, err := cc.Courses.Create(c.UserContext(), middleware.CurrentUser(c), input)
	if err != nil {
		return err
	}
	return utils.Created(c, course, "Course created successfully")
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return err
	}

	var input services.UpdateCourseInput
	if err := utils.ParseBody(c, &input); err != nil {
		return err
	}

	course, err := cc.Courses.Update(c.UserContext(), middleware.CurrentUser(c), id, input)
	if err != nil {
		return err
	}
	return utils.OK(c, course, "Course updated successfully")
}

func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return err
	}

	if err := cc.Courses.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return utils.Message(c, fiber.StatusOK, "Course deleted successfully")
}

func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return err
	}

	if err := cc.Courses.Enroll(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return utils.Message(c, fiber.StatusOK, "Successfully enrolled in course")
}

// Rate принимает только целое число от 1 до 5, проверка до любых изменений
func (cc *CoursesController) Rate(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return err
	}

	var input RateRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrValidation("Invalid request body")
	}
	value, ok := input.Rating.(float64)
	if !ok || value != math.Trunc(value) || value < 1 || value > 5 {
		return utils.ErrValidation("Rating must be an integer between 1 and 5")
	}

	result, err := cc.Courses.Rate(c.UserContext(), middleware.CurrentUser(c), id, int(value))
	if err != nil {
		return err
	}
	return utils.OK(c, result, "Rating saved")
}
