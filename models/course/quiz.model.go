package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz represents an assessment attached to a lesson
type Quiz struct {
	gorm.Model
	LessonID        uint    `json:"lesson_id" gorm:"index;not null"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	PassingScore    float64 `json:"passing_score" gorm:"default:70"` // 0-100
	DurationMinutes int     `json:"duration_minutes" gorm:"default:0"` // 0 = untimed
	IsActive        bool    `json:"is_active" gorm:"default:true"`
	IsDeleted       bool    `gorm:"default:false"`
}

// QuizQuestion represents a single multiple choice question.
// Options holds the ordered answer texts as a JSON array.
type QuizQuestion struct {
	gorm.Model
	QuizID        uint           `json:"quiz_id" gorm:"index;not null"`
	QuestionText  string         `json:"question_text"`
	Options       datatypes.JSON `json:"options"`
	CorrectOption int            `json:"correct_option" gorm:"default:0"` // Index into Options
	Explanation   string         `json:"explanation"`
	QuestionOrder int            `json:"question_order" gorm:"default:0"`
	IsDeleted     bool           `gorm:"default:false"`
}

// QuizResult represents one graded quiz attempt.
// Answers maps question index to chosen option index, as JSON.
type QuizResult struct {
	gorm.Model
	StudentID        uint           `json:"student_id" gorm:"index;not null"`
	QuizID           uint           `json:"quiz_id" gorm:"index;not null"`
	LessonID         uint           `json:"lesson_id" gorm:"index;not null"`
	Answers          datatypes.JSON `json:"answers"`
	Score            float64        `json:"score"` // 0-100
	Passed           bool           `json:"passed" gorm:"default:false"`
	TimeTakenSeconds int            `json:"time_taken_seconds" gorm:"default:0"`
	AttemptNumber    int            `json:"attempt_number" gorm:"default:1"`
	AutoSubmitted    bool           `json:"auto_submitted" gorm:"default:false"`
	IsDeleted        bool           `gorm:"default:false"`
}
