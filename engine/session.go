package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states. Submitted is terminal: a retake creates a
// brand-new session, the old one is discarded.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitted  State = "SUBMITTED"
)

// Direction moves the navigation cursor.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// untimedRemaining marks a session without a countdown.
const untimedRemaining = -1

// Validate rejects quiz definitions that must not start: an empty
// question list, a question with fewer than two options, or a correct
// index outside the option range.
func (d QuizDefinition) Validate() error {
	if len(d.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrQuizUnplayable)
	}
	for i, q := range d.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrQuizUnplayable, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct option %d out of range", ErrQuizUnplayable, i, q.CorrectOption)
		}
	}
	return nil
}

// Session is one quiz attempt for one student on one lesson. It is not
// persisted; only the graded result reaches the store. Callers are
// expected to serialize access (see Manager).
type Session struct {
	ID        uuid.UUID
	StudentID uint
	LessonID  uint
	Quiz      QuizDefinition

	state     State
	cursor    int
	answers   map[int]int // question index -> chosen option index
	remaining int         // seconds, untimedRemaining when no limit
	startedAt time.Time
	result    *Result
}

// NewSession validates the definition and prepares a NotStarted attempt.
func NewSession(studentID uint, def QuizDefinition) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.New(),
		StudentID: studentID,
		LessonID:  def.LessonID,
		Quiz:      def,
		state:     StateNotStarted,
		answers:   make(map[int]int),
		remaining: untimedRemaining,
	}, nil
}

// Start moves NotStarted to InProgress, clears any answers and arms the
// remaining time from the quiz's limit. Untimed quizzes keep the
// remaining time unset.
func (s *Session) Start() error {
	switch s.state {
	case StateInProgress:
		return nil // already running
	case StateSubmitted:
		return ErrSessionClosed
	}
	s.state = StateInProgress
	s.cursor = 0
	s.answers = make(map[int]int)
	s.startedAt = time.Now()
	if s.Quiz.DurationMinutes > 0 {
		s.remaining = s.Quiz.DurationMinutes * 60
	} else {
		s.remaining = untimedRemaining
	}
	return nil
}

// SelectAnswer records the chosen option for a question. Valid only in
// InProgress; a prior answer for the same question is overwritten, no
// history is kept.
func (s *Session) SelectAnswer(questionIndex, optionIndex int) error {
	if err := s.requireInProgress(); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(s.Quiz.Questions) {
		return ErrOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(s.Quiz.Questions[questionIndex].Options) {
		return ErrOutOfRange
	}
	s.answers[questionIndex] = optionIndex
	return nil
}

// Advance moves the navigation cursor one step, clamped to the question
// range. Moving forward is blocked while the current question is
// unanswered. The cursor never affects scoring.
func (s *Session) Advance(dir Direction) error {
	if err := s.requireInProgress(); err != nil {
		return err
	}
	switch dir {
	case DirectionNext:
		if _, answered := s.answers[s.cursor]; !answered {
			return ErrUnansweredQuestions
		}
		if s.cursor < len(s.Quiz.Questions)-1 {
			s.cursor++
		}
	case DirectionPrev:
		if s.cursor > 0 {
			s.cursor--
		}
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
	return nil
}

// Submit grades the attempt and moves it to the terminal Submitted
// state. It is single-use: a second call returns the existing result
// with first=false and has no other effect, which is how a manual
// submit racing a timer expiry resolves. Manual submits require every
// question to be answered; auto submits score whatever subset exists.
func (s *Session) Submit(auto bool) (*Result, bool, error) {
	switch s.state {
	case StateNotStarted:
		return nil, false, ErrSessionNotStarted
	case StateSubmitted:
		return s.result, false, nil
	}
	if !auto && !s.AnsweredAll() {
		return nil, false, ErrUnansweredQuestions
	}

	res := Grade(s.Quiz, s.answers)
	res.AutoSubmitted = auto
	if s.remaining != untimedRemaining && auto {
		// Timer ran out: the attempt took the whole limit.
		res.TimeTakenSeconds = s.Quiz.DurationMinutes * 60
	} else {
		res.TimeTakenSeconds = int(time.Since(s.startedAt).Seconds())
	}

	s.state = StateSubmitted
	s.result = &res
	return s.result, true, nil
}

// tick counts down one second. It reports true once the session should
// auto-submit: the countdown reached zero while still InProgress.
// Sessions that already left InProgress never expire.
func (s *Session) tick() bool {
	if s.state != StateInProgress || s.remaining == untimedRemaining {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	return s.remaining == 0
}

// degradeToUntimed drops the countdown, keeping the session running.
// Used when the timer cannot be scheduled.
func (s *Session) degradeToUntimed() {
	s.remaining = untimedRemaining
}

// AnsweredAll reports whether every question has a recorded answer,
// which gates the manual submit affordance.
func (s *Session) AnsweredAll() bool {
	return len(s.answers) == len(s.Quiz.Questions)
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Cursor returns the current question index.
func (s *Session) Cursor() int {
	return s.cursor
}

// Remaining returns the remaining seconds and whether the session is
// timed at all.
func (s *Session) Remaining() (int, bool) {
	if s.remaining == untimedRemaining {
		return 0, false
	}
	return s.remaining, true
}

// Answers returns a copy of the recorded answers, keyed by question
// index. At most one answer exists per question.
func (s *Session) Answers() map[int]int {
	out := make(map[int]int, len(s.answers))
	for q, opt := range s.answers {
		out[q] = opt
	}
	return out
}

// Result returns the graded result once Submitted, else nil.
func (s *Session) Result() *Result {
	return s.result
}

func (s *Session) requireInProgress() error {
	switch s.state {
	case StateNotStarted:
		return ErrSessionNotStarted
	case StateSubmitted:
		return ErrSessionClosed
	}
	return nil
}
