package course

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress tracks a student's progress on a single lesson.
// One row per (student, lesson); created on first interaction.
type LessonProgress struct {
	gorm.Model
	StudentID        uint       `json:"student_id" gorm:"index;not null;uniqueIndex:idx_student_lesson"`
	LessonID         uint       `json:"lesson_id" gorm:"index;not null;uniqueIndex:idx_student_lesson"`
	CourseID         uint       `json:"course_id" gorm:"index;not null"`
	Completed        bool       `json:"completed" gorm:"default:false"`
	ProgressPercent  float64    `json:"progress_percent" gorm:"default:0"` // 0-100
	TimeSpentSeconds int        `json:"time_spent_seconds" gorm:"default:0"`
	WatchPercent     float64    `json:"watch_percent" gorm:"default:0"` // For video lessons
	LastAccessed     *time.Time `json:"last_accessed"`
	IsDeleted        bool       `gorm:"default:false"`
}
