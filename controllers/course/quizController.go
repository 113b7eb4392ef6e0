package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"lms/engine"
	"lms/middleware"
)

// sanitizedQuestion is a question as shown to the student while the
// attempt is live: prompt and options only. Correct options and
// explanations are revealed in the submit response.
type sanitizedQuestion struct {
	ID      uint     `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

type questionReview struct {
	ID            uint   `json:"id"`
	Prompt        string `json:"question"`
	ChosenOption  *int   `json:"chosenOption,omitempty"`
	CorrectOption int    `json:"correctOption"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

func sanitize(def *engine.QuizDefinition) fiber.Map {
	questions := make([]sanitizedQuestion, len(def.Questions))
	for i, q := range def.Questions {
		questions[i] = sanitizedQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
	}
	return fiber.Map{
		"id":               def.ID,
		"lesson_id":        def.LessonID,
		"title":            def.Title,
		"passing_score":    def.PassingScore,
		"duration_minutes": def.DurationMinutes,
		"questions":        questions,
	}
}

// gateLesson loads the snapshot and enforces the linear gating chain
// before any quiz operation on the lesson. Returns a non-nil response
// error when the request must not proceed.
func gateLesson(c *fiber.Ctx, studentID uint, courseID, lessonID int) error {
	snap, err := store.GetCourseProgress(c.Context(), studentID, uint(courseID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to fetch course progress!", nil)
	}
	tracker := engine.NewTracker(snap)

	accessible, err := tracker.AccessibleByID(uint(lessonID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	if !accessible {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Lesson is locked!", nil)
	}
	return nil
}

// GetLessonQuiz returns the sanitized quiz definition for a lesson, or
// an explicit no-quiz result.
func GetLessonQuiz(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)

	if resp := gateLesson(c, studentID, courseID, lessonID); resp != nil {
		return resp
	}

	def, err := store.GetLessonQuiz(c.Context(), uint(lessonID))
	if errors.Is(err, engine.ErrNoQuiz) {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson has no quiz.", fiber.Map{"has_quiz": false})
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to fetch quiz!", nil)
	}

	data := sanitize(def)
	data["has_quiz"] = true
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz fetched successfully!", data)
}

// StartQuiz opens a new attempt, discarding any stale session for the
// same lesson.
func StartQuiz(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)

	if resp := gateLesson(c, studentID, courseID, lessonID); resp != nil {
		return resp
	}

	view, err := sessions.StartQuiz(c.Context(), studentID, uint(courseID), uint(lessonID))
	switch {
	case errors.Is(err, engine.ErrNoQuiz):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson has no quiz!", nil)
	case errors.Is(err, engine.ErrQuizUnplayable):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Quiz is misconfigured and cannot be started!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to start quiz!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz started!", view)
}

// SelectAnswer records an answer for a question of the active attempt.
func SelectAnswer(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)
	questionIndex := c.Locals("questionIndex").(int)
	optionIndex := c.Locals("optionIndex").(int)

	view, err := sessions.SelectAnswer(studentID, uint(lessonID), questionIndex, optionIndex)
	if resp := mapSessionError(c, err); resp != nil {
		return resp
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer recorded!", view)
}

// AdvanceCursor moves the attempt's navigation cursor.
func AdvanceCursor(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)
	direction := engine.Direction(c.Locals("direction").(string))

	view, err := sessions.Advance(studentID, uint(lessonID), direction)
	if errors.Is(err, engine.ErrUnansweredQuestions) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Answer the current question before moving on!", nil)
	}
	if resp := mapSessionError(c, err); resp != nil {
		return resp
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Moved!", view)
}

// GetSession returns the live state of the active attempt.
func GetSession(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)

	view, err := sessions.View(studentID, uint(lessonID))
	if resp := mapSessionError(c, err); resp != nil {
		return resp
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Session fetched!", view)
}

// SubmitQuiz grades the attempt and persists the result. Submitting an
// already graded attempt is a no-op returning the existing result.
func SubmitQuiz(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)

	outcome, err := sessions.Submit(c.Context(), studentID, uint(lessonID))
	if errors.Is(err, engine.ErrUnansweredQuestions) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "All questions must be answered before submitting!", nil)
	}
	if resp := mapSessionError(c, err); resp != nil {
		return resp
	}

	view, viewErr := sessions.View(studentID, uint(lessonID))
	data := fiber.Map{
		"result":    outcome.Result,
		"persisted": outcome.Persisted,
	}
	if viewErr == nil {
		data["review"] = buildReview(c.Context(), view, uint(lessonID))
	}

	if outcome.PersistPending {
		// A background write from the expiry is still running; its
		// outcome is unknown, so neither success nor failure is claimed.
		data["persist_pending"] = true
		return middleware.JsonResponse(c, fiber.StatusAccepted, true,
			"Quiz graded; the result is still being saved. Check back or submit again to confirm.", data)
	}
	if !outcome.Persisted {
		// Grading stands locally; the student must know the store
		// write failed so the loss is not silent.
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false,
			"Quiz graded, but saving the result failed. Your score is kept for this session; submit again to retry saving.", data)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz submitted!", data)
}

// AbandonSession drops the active attempt without grading or persisting
// anything.
func AbandonSession(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)

	sessions.Abandon(studentID, uint(lessonID))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz session discarded.", nil)
}

// buildReview reveals per-question correctness and explanations for a
// graded attempt.
func buildReview(ctx context.Context, view *engine.SessionView, lessonID uint) []questionReview {
	if view.Result == nil {
		return nil
	}
	def, err := store.GetLessonQuiz(ctx, lessonID)
	if err != nil {
		return nil
	}
	review := make([]questionReview, len(def.Questions))
	for i, q := range def.Questions {
		review[i] = questionReview{
			ID:            q.ID,
			Prompt:        q.Prompt,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		}
		if chosen, ok := view.Answers[i]; ok {
			c := chosen
			review[i].ChosenOption = &c
			review[i].Correct = chosen == q.CorrectOption
		}
	}
	return review
}

// mapSessionError translates engine sentinels into the response
// envelope. Gating violations carry no user-facing error detail.
func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrNoActiveSession):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "No active quiz session!", nil)
	case errors.Is(err, engine.ErrSessionClosed):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Quiz already submitted!", nil)
	case errors.Is(err, engine.ErrSessionNotStarted):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Quiz session not started!", nil)
	case errors.Is(err, engine.ErrOutOfRange):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Question or option index out of range!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Quiz operation failed!", nil)
	}
}
