package engine

import "context"

// SubmitResultRequest carries one graded attempt to the remote store.
// Answers maps question index to chosen option index.
type SubmitResultRequest struct {
	StudentID        uint        `json:"studentId"`
	QuizID           uint        `json:"quizId"`
	LessonID         uint        `json:"lessonId"`
	Answers          map[int]int `json:"answers"`
	Score            float64     `json:"score"`
	Passed           bool        `json:"passed"`
	TimeTakenSeconds int         `json:"timeTaken"`
	AutoSubmitted    bool        `json:"autoSubmitted"`
}

// ProgressUpdate carries a durable lesson-progress write.
type ProgressUpdate struct {
	StudentID        uint    `json:"studentId"`
	CourseID         uint    `json:"courseId"`
	LessonID         uint    `json:"lessonId"`
	Completed        bool    `json:"completed"`
	Percent          float64 `json:"percent"`
	WatchPercent     float64 `json:"watchPercent"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

// Gateway is the remote store for completion records and quiz results.
// The engine calls it and treats its state as the eventual source of
// truth, reconciling local snapshots on each successful response.
// Failed writes are reported to the caller; local state is not rolled
// back.
type Gateway interface {
	// GetLessonQuiz fetches the quiz definition for a lesson, or
	// ErrNoQuiz when the lesson has none.
	GetLessonQuiz(ctx context.Context, lessonID uint) (*QuizDefinition, error)

	// SubmitQuizResult durably records one graded attempt.
	SubmitQuizResult(ctx context.Context, req SubmitResultRequest) error

	// SetLessonProgress durably records lesson progress.
	SetLessonProgress(ctx context.Context, upd ProgressUpdate) error

	// GetCourseProgress returns the authoritative snapshot used to
	// reconcile after any mutation.
	GetCourseProgress(ctx context.Context, studentID, courseID uint) (*CourseSnapshot, error)
}
