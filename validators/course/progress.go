package courseValidator

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

// parseCourseID validates the :course_id path parameter
func parseCourseID(c *fiber.Ctx, errors map[string]string) int {
	courseID, err := strconv.Atoi(c.Params("course_id"))
	if err != nil || courseID < 1 {
		errors["course_id"] = "Course ID must be a positive integer!"
	}
	return courseID
}

// parseLessonID validates the :lesson_id path parameter
func parseLessonID(c *fiber.Ctx, errors map[string]string) int {
	lessonID, err := strconv.Atoi(c.Params("lesson_id"))
	if err != nil || lessonID < 1 {
		errors["lesson_id"] = "Lesson ID must be a positive integer!"
	}
	return lessonID
}

func GetCourseProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// LessonParams validates course and lesson path parameters for routes
// that carry no body
func LessonParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)
		lessonID := parseLessonID(c, errors)

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		return c.Next()
	}
}

func MarkLessonComplete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)
		lessonID := parseLessonID(c, errors)

		reqData := new(struct {
			TimeSpentSeconds *int `json:"time_spent_seconds"`
		})
		// Body is optional for completion
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		timeSpent := 0
		if reqData.TimeSpentSeconds != nil {
			if *reqData.TimeSpentSeconds < 0 {
				errors["time_spent_seconds"] = "Time spent must not be negative!"
			} else {
				timeSpent = *reqData.TimeSpentSeconds
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("timeSpentSeconds", timeSpent)
		return c.Next()
	}
}

func ReportWatchTime() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		courseID := parseCourseID(c, errors)
		lessonID := parseLessonID(c, errors)

		reqData := new(struct {
			WatchedSeconds       *int `json:"watched_seconds"`
			VideoDurationSeconds *int `json:"video_duration_seconds"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.WatchedSeconds == nil || *reqData.WatchedSeconds < 0 {
			errors["watched_seconds"] = "Watched seconds must not be negative!"
		}
		if reqData.VideoDurationSeconds == nil || *reqData.VideoDurationSeconds < 1 {
			errors["video_duration_seconds"] = "Video duration must be greater than 0!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("watchedSeconds", *reqData.WatchedSeconds)
		c.Locals("videoDurationSeconds", *reqData.VideoDurationSeconds)
		return c.Next()
	}
}
