package engine

// Lesson types as delivered by the catalog.
const (
	LessonTypeReading = "reading"
	LessonTypeVideo   = "video"
	LessonTypeQuiz    = "quiz"
)

// Lesson is one ordered unit of course content as seen by the engine.
// Position is unique within a course and defines the gating sequence.
type Lesson struct {
	ID              uint   `json:"id"`
	CourseID        uint   `json:"courseId"`
	Title           string `json:"title"`
	LessonType      string `json:"lessonType"`
	Position        int    `json:"position"`
	DurationMinutes int    `json:"durationMinutes"`
	HasQuiz         bool   `json:"hasQuiz"`
}

// LessonProgress is a student's progress record for one lesson.
type LessonProgress struct {
	LessonID         uint    `json:"lessonId"`
	Completed        bool    `json:"completed"`
	Percent          float64 `json:"percent"` // 0-100
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	WatchPercent     float64 `json:"watchPercent"` // For video lessons
}

// QuizQuestion is an immutable multiple choice question.
type QuizQuestion struct {
	ID            uint     `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizDefinition is the read-only description of one lesson's quiz.
// DurationMinutes of zero means the quiz is untimed.
type QuizDefinition struct {
	ID              uint           `json:"id"`
	LessonID        uint           `json:"lessonId"`
	Title           string         `json:"title"`
	PassingScore    float64        `json:"passingScore"`
	DurationMinutes int            `json:"durationMinutes,omitempty"`
	Questions       []QuizQuestion `json:"questions"`
}

// CourseSnapshot is the authoritative progress state for one student in
// one course, as reported by the persistence gateway. Progress is keyed
// by lesson id; lessons without a record have no entry.
type CourseSnapshot struct {
	CourseID       uint                    `json:"courseId"`
	Lessons        []Lesson                `json:"lessons"`
	Progress       map[uint]LessonProgress `json:"progress"`
	OverallPercent float64                 `json:"overallPercent"`
}
