package course

import "gorm.io/gorm"

// Lesson represents one ordered unit of course content
type Lesson struct {
	gorm.Model
	CourseID        uint   `json:"course_id" gorm:"index;not null"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	LessonType      string `json:"lesson_type" gorm:"default:'reading'"` // reading, video, quiz
	Position        int    `json:"position" gorm:"default:0"`            // Lesson order in course
	DurationMinutes int    `json:"duration_minutes" gorm:"default:0"`
	VideoURL        string `json:"video_url"` // For video type
	IsPublished     bool   `json:"is_published" gorm:"default:false"`
	IsDeleted       bool   `gorm:"default:false"`
}
