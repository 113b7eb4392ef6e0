package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/engine"
	course "lms/models/course"
)

// StoreGateway implements the persistence contract against the local
// database. It is the authoritative store for completion records and
// quiz results when the service runs in "store" mode.
type StoreGateway struct {
	Db *gorm.DB
}

// NewStoreGateway wraps a database handle.
func NewStoreGateway(db *gorm.DB) *StoreGateway {
	return &StoreGateway{Db: db}
}

// GetLessonQuiz loads the active quiz for a lesson with its ordered
// questions, or engine.ErrNoQuiz when the lesson has none.
func (g *StoreGateway) GetLessonQuiz(ctx context.Context, lessonID uint) (*engine.QuizDefinition, error) {
	var quiz course.Quiz
	err := g.Db.WithContext(ctx).
		Where("lesson_id = ? AND is_active = ? AND is_deleted = ?", lessonID, true, false).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.ErrNoQuiz
	}
	if err != nil {
		return nil, err
	}

	var rows []course.QuizQuestion
	if err := g.Db.WithContext(ctx).
		Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).
		Order("question_order asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	def := &engine.QuizDefinition{
		ID:              quiz.ID,
		LessonID:        quiz.LessonID,
		Title:           quiz.Title,
		PassingScore:    quiz.PassingScore,
		DurationMinutes: quiz.DurationMinutes,
		Questions:       make([]engine.QuizQuestion, 0, len(rows)),
	}
	for _, row := range rows {
		var options []string
		if err := json.Unmarshal(row.Options, &options); err != nil {
			return nil, fmt.Errorf("quiz %d question %d: bad options payload: %w", quiz.ID, row.ID, err)
		}
		def.Questions = append(def.Questions, engine.QuizQuestion{
			ID:            row.ID,
			Prompt:        row.QuestionText,
			Options:       options,
			CorrectOption: row.CorrectOption,
			Explanation:   row.Explanation,
		})
	}
	return def, nil
}

// SubmitQuizResult inserts one graded attempt with the next attempt
// number for the (student, quiz) pair.
func (g *StoreGateway) SubmitQuizResult(ctx context.Context, req engine.SubmitResultRequest) error {
	var attemptCount int64
	if err := g.Db.WithContext(ctx).Model(&course.QuizResult{}).
		Where("student_id = ? AND quiz_id = ? AND is_deleted = ?", req.StudentID, req.QuizID, false).
		Count(&attemptCount).Error; err != nil {
		return fmt.Errorf("count attempts for quiz %d: %w", req.QuizID, err)
	}

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		return err
	}

	result := course.QuizResult{
		StudentID:        req.StudentID,
		QuizID:           req.QuizID,
		LessonID:         req.LessonID,
		Answers:          datatypes.JSON(answersJSON),
		Score:            req.Score,
		Passed:           req.Passed,
		TimeTakenSeconds: req.TimeTakenSeconds,
		AttemptNumber:    int(attemptCount) + 1,
		AutoSubmitted:    req.AutoSubmitted,
	}
	return g.Db.WithContext(ctx).Create(&result).Error
}

// SetLessonProgress upserts the single progress row for the (student,
// lesson) pair. Completion is sticky: a later non-completed write never
// clears the flag, and percentages only move forward.
func (g *StoreGateway) SetLessonProgress(ctx context.Context, upd engine.ProgressUpdate) error {
	now := time.Now()

	var rec course.LessonProgress
	err := g.Db.WithContext(ctx).
		Where("student_id = ? AND lesson_id = ? AND is_deleted = ?", upd.StudentID, upd.LessonID, false).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = course.LessonProgress{
			StudentID:        upd.StudentID,
			LessonID:         upd.LessonID,
			CourseID:         upd.CourseID,
			Completed:        upd.Completed,
			ProgressPercent:  upd.Percent,
			WatchPercent:     upd.WatchPercent,
			TimeSpentSeconds: upd.TimeSpentSeconds,
			LastAccessed:     &now,
		}
		return g.Db.WithContext(ctx).Create(&rec).Error
	}
	if err != nil {
		return err
	}

	if upd.Completed {
		rec.Completed = true
	}
	if upd.Percent > rec.ProgressPercent || rec.Completed {
		rec.ProgressPercent = upd.Percent
	}
	if rec.Completed {
		rec.ProgressPercent = 100
	}
	if upd.WatchPercent > rec.WatchPercent {
		rec.WatchPercent = upd.WatchPercent
	}
	rec.TimeSpentSeconds += upd.TimeSpentSeconds
	rec.LastAccessed = &now
	return g.Db.WithContext(ctx).Save(&rec).Error
}

// GetCourseProgress assembles the authoritative snapshot: published
// lessons in position order, the student's progress rows keyed by
// lesson id, and the overall percentage.
func (g *StoreGateway) GetCourseProgress(ctx context.Context, studentID, courseID uint) (*engine.CourseSnapshot, error) {
	var lessons []course.Lesson
	if err := g.Db.WithContext(ctx).
		Where("course_id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).
		Order("position asc").
		Find(&lessons).Error; err != nil {
		return nil, err
	}

	var quizzes []course.Quiz
	if err := g.Db.WithContext(ctx).
		Where("is_active = ? AND is_deleted = ?", true, false).
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	hasQuiz := make(map[uint]bool, len(quizzes))
	for _, q := range quizzes {
		hasQuiz[q.LessonID] = true
	}

	var rows []course.LessonProgress
	if err := g.Db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND is_deleted = ?", studentID, courseID, false).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snap := &engine.CourseSnapshot{
		CourseID: courseID,
		Lessons:  make([]engine.Lesson, 0, len(lessons)),
		Progress: make(map[uint]engine.LessonProgress, len(rows)),
	}
	for _, l := range lessons {
		snap.Lessons = append(snap.Lessons, engine.Lesson{
			ID:              l.ID,
			CourseID:        l.CourseID,
			Title:           l.Title,
			LessonType:      l.LessonType,
			Position:        l.Position,
			DurationMinutes: l.DurationMinutes,
			HasQuiz:         hasQuiz[l.ID],
		})
	}
	var sum float64
	for _, r := range rows {
		snap.Progress[r.LessonID] = engine.LessonProgress{
			LessonID:         r.LessonID,
			Completed:        r.Completed,
			Percent:          r.ProgressPercent,
			TimeSpentSeconds: r.TimeSpentSeconds,
			WatchPercent:     r.WatchPercent,
		}
		sum += r.ProgressPercent
	}
	if len(lessons) > 0 {
		snap.OverallPercent = sum / float64(len(lessons))
	}
	return snap, nil
}
