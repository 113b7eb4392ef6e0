package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionView is the read model of one attempt handed to callers.
// RemainingSeconds is nil for untimed quizzes.
type SessionView struct {
	SessionID        uuid.UUID   `json:"sessionId"`
	LessonID         uint        `json:"lessonId"`
	QuizID           uint        `json:"quizId"`
	State            State       `json:"state"`
	Cursor           int         `json:"currentQuestion"`
	QuestionCount    int         `json:"questionCount"`
	Answers          map[int]int `json:"answers"`
	RemainingSeconds *int        `json:"remainingSeconds,omitempty"`
	CanSubmit        bool        `json:"canSubmit"`
	Result           *Result     `json:"result,omitempty"`
}

// SubmitOutcome reports a submit call: the graded result, whether this
// call performed the grading (false when an earlier submit already
// did), and whether the result reached the store. PersistPending marks
// a background write still in flight, its outcome not yet known.
// PersistErr carries the gateway failure so callers can surface an
// actionable notice; the terminal state is kept either way.
type SubmitOutcome struct {
	Result         *Result
	AlreadyGraded  bool
	Persisted      bool
	PersistPending bool
	PersistErr     error
}

type sessionKey struct {
	studentID uint
	lessonID  uint
}

type activeSession struct {
	sess      *Session
	courseID  uint
	countdown *Countdown
	touched   time.Time

	// Persistence bookkeeping for the terminal result. The result row
	// and the completion record are tracked separately so a retry after
	// a partial failure only replays the step that failed, never the
	// already stored attempt. persistInFlight guards against doubling a
	// background write.
	resultPersisted   bool
	progressPersisted bool
	persistInFlight   bool
}

// fullyPersisted reports whether every durable write for the graded
// attempt has landed: the result row always, the completion record only
// on a pass.
func (a *activeSession) fullyPersisted(res *Result) bool {
	return a.resultPersisted && (!res.Passed || a.progressPersisted)
}

func (a *activeSession) resultRequest(res *Result) SubmitResultRequest {
	return SubmitResultRequest{
		StudentID:        a.sess.StudentID,
		QuizID:           a.sess.Quiz.ID,
		LessonID:         a.sess.LessonID,
		Answers:          a.sess.Answers(),
		Score:            res.Score,
		Passed:           res.Passed,
		TimeTakenSeconds: res.TimeTakenSeconds,
		AutoSubmitted:    res.AutoSubmitted,
	}
}

func (a *activeSession) completionUpdate() ProgressUpdate {
	return ProgressUpdate{
		StudentID: a.sess.StudentID,
		CourseID:  a.courseID,
		LessonID:  a.sess.LessonID,
		Completed: true,
		Percent:   100,
	}
}

// Manager owns every live quiz session, at most one per (student,
// lesson) pair. A single mutex serializes all mutations - user events
// and timer ticks alike - so each handler runs to completion before the
// next is processed, and the single-use submit guard resolves races
// deterministically.
type Manager struct {
	mu           sync.Mutex
	gw           Gateway
	tickInterval time.Duration
	sessions     map[sessionKey]*activeSession
}

// NewManager wires the manager to its persistence gateway. tickInterval
// is one second in production; tests pass something faster. A
// non-positive interval disables countdowns entirely, degrading timed
// quizzes to untimed.
func NewManager(gw Gateway, tickInterval time.Duration) *Manager {
	return &Manager{
		gw:           gw,
		tickInterval: tickInterval,
		sessions:     make(map[sessionKey]*activeSession),
	}
}

// StartQuiz fetches the lesson's quiz definition and opens a new
// InProgress session. A stale session for the same pair is discarded
// first, its countdown stopped; its state is never persisted.
func (m *Manager) StartQuiz(ctx context.Context, studentID, courseID, lessonID uint) (*SessionView, error) {
	def, err := m.gw.GetLessonQuiz(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	sess, err := NewSession(studentID, *def)
	if err != nil {
		return nil, err
	}
	if err := sess.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{studentID: studentID, lessonID: lessonID}
	if stale, ok := m.sessions[key]; ok {
		stale.stopCountdown()
		delete(m.sessions, key)
	}

	active := &activeSession{sess: sess, courseID: courseID, touched: time.Now()}
	if _, timed := sess.Remaining(); timed {
		if m.tickInterval > 0 {
			active.countdown = NewCountdown(m.tickInterval, func() bool {
				return m.onTick(key)
			})
		} else {
			// Countdown cannot be scheduled; run untimed rather
			// than blocking the session.
			sess.degradeToUntimed()
			log.Printf("quiz session %s: countdown unavailable, degrading to untimed", sess.ID)
		}
	}
	m.sessions[key] = active

	return viewOf(active), nil
}

// SelectAnswer records an answer on the active session.
func (m *Manager) SelectAnswer(studentID, lessonID uint, questionIndex, optionIndex int) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, ok := m.sessions[sessionKey{studentID: studentID, lessonID: lessonID}]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if err := active.sess.SelectAnswer(questionIndex, optionIndex); err != nil {
		return nil, err
	}
	active.touched = time.Now()
	return viewOf(active), nil
}

// Advance moves the active session's navigation cursor.
func (m *Manager) Advance(studentID, lessonID uint, dir Direction) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, ok := m.sessions[sessionKey{studentID: studentID, lessonID: lessonID}]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if err := active.sess.Advance(dir); err != nil {
		return nil, err
	}
	active.touched = time.Now()
	return viewOf(active), nil
}

// View returns the current state of the active session.
func (m *Manager) View(studentID, lessonID uint) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, ok := m.sessions[sessionKey{studentID: studentID, lessonID: lessonID}]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return viewOf(active), nil
}

// Submit performs a manual submit: every question must be answered. The
// local transition happens first; the result is then written through
// the gateway. A failed write is reported in the outcome, never rolled
// back locally, so the student is not forced to redo the attempt.
func (m *Manager) Submit(ctx context.Context, studentID, lessonID uint) (*SubmitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{studentID: studentID, lessonID: lessonID}
	active, ok := m.sessions[key]
	if !ok {
		return nil, ErrNoActiveSession
	}

	res, first, err := active.sess.Submit(false)
	if err != nil {
		return nil, err
	}
	active.stopCountdown()
	active.touched = time.Now()

	// A timer expiry (or an earlier submit) may have got here first. If
	// its writes landed there is nothing to do; while they are still in
	// flight the outcome is reported as pending rather than claimed
	// saved. Otherwise this call retries whatever is missing.
	if !first && active.fullyPersisted(res) {
		return &SubmitOutcome{Result: res, AlreadyGraded: true, Persisted: true}, nil
	}
	if active.persistInFlight {
		return &SubmitOutcome{Result: res, AlreadyGraded: !first, PersistPending: true}, nil
	}

	persistErr := m.persistResult(ctx, active, res)
	return &SubmitOutcome{
		Result:        res,
		AlreadyGraded: !first,
		Persisted:     persistErr == nil,
		PersistErr:    persistErr,
	}, nil
}

// Abandon drops the active session without grading or persisting
// anything. Safe to call when no session exists.
func (m *Manager) Abandon(studentID, lessonID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{studentID: studentID, lessonID: lessonID}
	if active, ok := m.sessions[key]; ok {
		active.stopCountdown()
		delete(m.sessions, key)
	}
}

// ReapIdle discards sessions untouched for longer than ttl and returns
// how many were dropped. Called by the janitor.
func (m *Manager) ReapIdle(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	reaped := 0
	for key, active := range m.sessions {
		if active.touched.Before(cutoff) {
			active.stopCountdown()
			delete(m.sessions, key)
			reaped++
		}
	}
	return reaped
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// onTick advances one session's countdown by a second. Returning true
// stops the countdown: either the session is gone, it already left
// InProgress, or it just expired and was auto-submitted.
func (m *Manager) onTick(key sessionKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, ok := m.sessions[key]
	if !ok {
		return true
	}
	if active.sess.State() != StateInProgress {
		return true
	}
	if !active.sess.tick() {
		return false
	}

	// Expired: auto-submit scores whatever answers exist right now.
	res, first, err := active.sess.Submit(true)
	if err != nil || !first {
		return true
	}
	active.touched = time.Now()
	log.Printf("quiz session %s: time limit reached, auto-submitted (score %.1f)", active.sess.ID, res.Score)

	// No caller is waiting on an expiry, so persist in the background
	// and log failures. The graded state is kept regardless; a manual
	// submit retries whatever is still missing if this write fails. The
	// requests are built under the lock, the outcome committed under it.
	active.persistInFlight = true
	req := active.resultRequest(res)
	upd := active.completionUpdate()
	go func(a *activeSession, r *Result) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resultErr := m.gw.SubmitQuizResult(ctx, req)
		var progressErr error
		if resultErr == nil && r.Passed {
			progressErr = m.gw.SetLessonProgress(ctx, upd)
		}

		m.mu.Lock()
		a.persistInFlight = false
		a.resultPersisted = resultErr == nil
		a.progressPersisted = resultErr == nil && r.Passed && progressErr == nil
		m.mu.Unlock()

		if resultErr != nil {
			log.Printf("quiz session %s: failed to persist auto-submitted result: %v", a.sess.ID, resultErr)
		} else if progressErr != nil {
			log.Printf("quiz session %s: failed to record lesson completion: %v", a.sess.ID, progressErr)
		}
	}(active, res)
	return true
}

// persistResult writes whatever the store is still missing for a graded
// attempt: the result row first, then the completion record on a pass.
// Each step is skipped once it has landed, so a retry after a partial
// failure never inserts a second row for the same attempt. Called with
// the manager lock held and no background write in flight.
func (m *Manager) persistResult(ctx context.Context, active *activeSession, res *Result) error {
	if !active.resultPersisted {
		if err := m.gw.SubmitQuizResult(ctx, active.resultRequest(res)); err != nil {
			return err
		}
		active.resultPersisted = true
	}
	if !res.Passed || active.progressPersisted {
		return nil
	}
	if err := m.gw.SetLessonProgress(ctx, active.completionUpdate()); err != nil {
		return err
	}
	active.progressPersisted = true
	return nil
}

func (a *activeSession) stopCountdown() {
	if a.countdown != nil {
		a.countdown.Stop()
	}
}

func viewOf(active *activeSession) *SessionView {
	sess := active.sess
	view := &SessionView{
		SessionID:     sess.ID,
		LessonID:      sess.LessonID,
		QuizID:        sess.Quiz.ID,
		State:         sess.State(),
		Cursor:        sess.Cursor(),
		QuestionCount: len(sess.Quiz.Questions),
		Answers:       sess.Answers(),
		CanSubmit:     sess.State() == StateInProgress && sess.AnsweredAll(),
		Result:        sess.Result(),
	}
	if remaining, timed := sess.Remaining(); timed {
		view.RemainingSeconds = &remaining
	}
	return view
}
