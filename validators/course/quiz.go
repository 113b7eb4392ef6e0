package courseValidator

import (
	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

func SelectAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)
		lessonID := parseLessonID(c, errors)

		reqData := new(struct {
			QuestionIndex *int `json:"question_index"`
			OptionIndex   *int `json:"option_index"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.QuestionIndex == nil || *reqData.QuestionIndex < 0 {
			errors["question_index"] = "Question index must not be negative!"
		}
		if reqData.OptionIndex == nil || *reqData.OptionIndex < 0 {
			errors["option_index"] = "Option index must not be negative!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("questionIndex", *reqData.QuestionIndex)
		c.Locals("optionIndex", *reqData.OptionIndex)
		return c.Next()
	}
}

func AdvanceCursor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)
		lessonID := parseLessonID(c, errors)

		reqData := new(struct {
			Direction string `json:"direction"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.Direction != "next" && reqData.Direction != "prev" {
			errors["direction"] = "Direction must be either next or prev!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("direction", reqData.Direction)
		return c.Next()
	}
}
