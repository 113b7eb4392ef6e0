package engine

import "errors"

var (
	// ErrQuizUnplayable marks a quiz definition that must not start:
	// no questions, a question with fewer than two options, or a
	// correct-option index out of range.
	ErrQuizUnplayable = errors.New("quiz definition is unplayable")

	// ErrNoQuiz is returned by gateways when a lesson has no quiz.
	ErrNoQuiz = errors.New("lesson has no quiz")

	// ErrSessionNotStarted rejects operations before Start().
	ErrSessionNotStarted = errors.New("quiz session not started")

	// ErrSessionClosed rejects mutations of a graded session.
	ErrSessionClosed = errors.New("quiz session already submitted")

	// ErrNoActiveSession is returned when no attempt is in progress
	// for the (student, lesson) pair.
	ErrNoActiveSession = errors.New("no active quiz session")

	// ErrUnansweredQuestions blocks manual submit while any question
	// has no recorded answer.
	ErrUnansweredQuestions = errors.New("quiz has unanswered questions")

	// ErrOutOfRange rejects answer indices outside the question or
	// option bounds.
	ErrOutOfRange = errors.New("index out of range")

	// ErrLessonLocked rejects access to a lesson whose predecessor is
	// not completed.
	ErrLessonLocked = errors.New("lesson is locked")

	// ErrLessonNotFound is returned for lesson ids absent from the
	// catalog.
	ErrLessonNotFound = errors.New("lesson not found")
)
