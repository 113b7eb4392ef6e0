package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"
)

// SetupCourseRoutes sets up all student-facing progression and quiz routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Progress tracking
	courseGroup.Get("/:course_id/progress", middleware.JWTMiddleware, validators.GetCourseProgress(), controllers.GetCourseProgress)

	// Lesson completion and video watch reporting
	courseGroup.Post("/:course_id/lesson/:lesson_id/complete", middleware.JWTMiddleware, validators.MarkLessonComplete(), controllers.MarkLessonComplete)
	courseGroup.Post("/:course_id/lesson/:lesson_id/watch", middleware.JWTMiddleware, validators.ReportWatchTime(), controllers.ReportWatchTime)

	// Quiz definition and session lifecycle
	courseGroup.Get("/:course_id/lesson/:lesson_id/quiz", middleware.JWTMiddleware, validators.LessonParams(), controllers.GetLessonQuiz)
	courseGroup.Post("/:course_id/lesson/:lesson_id/quiz/start", middleware.JWTMiddleware, validators.LessonParams(), controllers.StartQuiz)
	courseGroup.Post("/:course_id/lesson/:lesson_id/quiz/answer", middleware.JWTMiddleware, validators.SelectAnswer(), controllers.SelectAnswer)
	courseGroup.Post("/:course_id/lesson/:lesson_id/quiz/advance", middleware.JWTMiddleware, validators.AdvanceCursor(), controllers.AdvanceCursor)
	courseGroup.Get("/:course_id/lesson/:lesson_id/quiz/session", middleware.JWTMiddleware, validators.LessonParams(), controllers.GetSession)
	courseGroup.Post("/:course_id/lesson/:lesson_id/quiz/submit", middleware.JWTMiddleware, validators.LessonParams(), controllers.SubmitQuiz)
	courseGroup.Delete("/:course_id/lesson/:lesson_id/quiz/session", middleware.JWTMiddleware, validators.LessonParams(), controllers.AbandonSession)
}
