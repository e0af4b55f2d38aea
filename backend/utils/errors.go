package utils

import (
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// AppError ошибка с HTTP-статусом и сообщением для клиента
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ErrValidation(message string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Message: message}
}

func ErrUnauthorized(message string) *AppError {
	return &AppError{Status: fiber.StatusUnauthorized, Message: message}
}

func ErrForbidden(message string) *AppError {
	return &AppError{Status: fiber.StatusForbidden, Message: message}
}

func ErrNotFound(message string) *AppError {
	return &AppError{Status: fiber.StatusNotFound, Message: message}
}

// ErrInternal оборачивает причину, клиент видит только "Server error"
func ErrInternal(err error, context string) *AppError {
	return &AppError{Status: fiber.StatusInternalServerError, Message: "Server error", Err: errors.Wrap(err, context)}
}

// ErrorHandler централизованно превращает ошибки обработчиков в JSON
func ErrorHandler(logger *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		var fiberErr *fiber.Error
		var validationErrs validator.ValidationErrors

		switch {
		case errors.As(err, &appErr):
			if appErr.Status >= fiber.StatusInternalServerError {
				logger.Printf("%s %s: %v", c.Method(), c.Path(), appErr.Err)
			}
			return Error(c, appErr.Status, appErr.Message)
		case errors.As(err, &validationErrs):
			details := TranslateValidation(validationErrs)
			return Error(c, fiber.StatusBadRequest, firstMessage(validationErrs, details), details)
		case errors.As(err, &fiberErr):
			return Error(c, fiberErr.Code, fiberErr.Message)
		default:
			logger.Printf("%s %s: unhandled error: %+v", c.Method(), c.Path(), err)
			return Error(c, fiber.StatusInternalServerError, "Server error")
		}
	}
}

func firstMessage(errs validator.ValidationErrors, details map[string]string) string {
	if len(errs) == 0 {
		return http.StatusText(http.StatusBadRequest)
	}
	return details[errs[0].Field()]
}
