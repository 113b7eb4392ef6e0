package controllers

import (
	"github.com/gofiber/fiber/v2"

	"lms/engine"
	"lms/middleware"
)

// lessonStatus is one row of the progress response: the lesson, whether
// the gating chain has unlocked it, and the stored progress if any.
type lessonStatus struct {
	Lesson     engine.Lesson          `json:"lesson"`
	Accessible bool                   `json:"accessible"`
	Progress   *engine.LessonProgress `json:"progress,omitempty"`
}

func trackerResponse(t *engine.Tracker) fiber.Map {
	lessons := t.Lessons()
	statuses := make([]lessonStatus, len(lessons))
	for i, l := range lessons {
		statuses[i] = lessonStatus{
			Lesson:     l,
			Accessible: t.Accessible(i),
		}
		if rec, ok := t.Progress(l.ID); ok {
			statuses[i].Progress = &rec
		}
	}
	return fiber.Map{
		"lessons":         statuses,
		"overall_percent": t.Overall(),
	}
}

// GetCourseProgress returns the authoritative snapshot with per-lesson
// accessibility and the overall completion percentage.
func GetCourseProgress(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	snap, err := store.GetCourseProgress(c.Context(), studentID, uint(courseID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to fetch course progress!", nil)
	}

	tracker := engine.NewTracker(snap)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", trackerResponse(tracker))
}

// MarkLessonComplete applies the optimistic local completion, persists
// it, and reconciles against a fresh snapshot. Completing a lesson
// unlocks its successor.
func MarkLessonComplete(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)
	timeSpent := c.Locals("timeSpentSeconds").(int)

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

	if allowed, reason := tracker.CanComplete(uint(lessonID)); !allowed {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, reason, nil)
	}

	// Local transition first, then the durable write.
	if err := tracker.MarkComplete(uint(lessonID)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	if err := store.SetLessonProgress(c.Context(), engine.ProgressUpdate{
		StudentID:        studentID,
		CourseID:         uint(courseID),
		LessonID:         uint(lessonID),
		Completed:        true,
		Percent:          100,
		TimeSpentSeconds: timeSpent,
	}); err != nil {
		// The local completion stands; tell the student their progress
		// is not saved remotely yet so the loss is not silent.
		data := trackerResponse(tracker)
		data["persisted"] = false
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false,
			"Lesson completed locally, but saving to the progress store failed. Please retry to keep your progress across devices.", data)
	}

	// Reconcile with the store rather than trusting the optimistic
	// update, to pick up concurrent changes from other devices.
	if fresh, err := store.GetCourseProgress(c.Context(), studentID, uint(courseID)); err == nil {
		tracker.Reconcile(fresh)
	}

	data := trackerResponse(tracker)
	data["persisted"] = true
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked complete!", data)
}

// ReportWatchTime folds a video watch report into the lesson's progress
// record and persists it without completing the lesson.
func ReportWatchTime(c *fiber.Ctx) error {
	studentID, ok := c.Locals("studentId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)
	watched := c.Locals("watchedSeconds").(int)
	videoDuration := c.Locals("videoDurationSeconds").(int)

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

	rec, err := tracker.RecordWatchTime(uint(lessonID), watched, videoDuration)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	persisted := true
	if err := store.SetLessonProgress(c.Context(), engine.ProgressUpdate{
		StudentID:        studentID,
		CourseID:         uint(courseID),
		LessonID:         uint(lessonID),
		Completed:        false,
		Percent:          rec.Percent,
		WatchPercent:     rec.WatchPercent,
		TimeSpentSeconds: watched,
	}); err != nil {
		persisted = false
	}

	canComplete, reason := tracker.CanComplete(uint(lessonID))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Watch time recorded!", fiber.Map{
		"progress":            rec,
		"can_complete":        canComplete,
		"completion_blocker":  reason,
		"persisted":           persisted,
	})
}
