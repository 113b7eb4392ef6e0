package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records writes and serves a canned quiz definition.
type fakeGateway struct {
	mu sync.Mutex

	quiz    *QuizDefinition
	quizErr error

	results     []SubmitResultRequest
	updates     []ProgressUpdate
	submitErr   error
	progressErr error

	// When set, SubmitQuizResult blocks until the channel is closed,
	// holding a background write in flight.
	submitGate chan struct{}
}

func (f *fakeGateway) GetLessonQuiz(ctx context.Context, lessonID uint) (*QuizDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	def := *f.quiz
	return &def, nil
}

func (f *fakeGateway) SubmitQuizResult(ctx context.Context, req SubmitResultRequest) error {
	f.mu.Lock()
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.results = append(f.results, req)
	return nil
}

func (f *fakeGateway) SetLessonProgress(ctx context.Context, upd ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return f.progressErr
	}
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeGateway) GetCourseProgress(ctx context.Context, studentID, courseID uint) (*CourseSnapshot, error) {
	return &CourseSnapshot{CourseID: courseID, Progress: map[uint]LessonProgress{}}, nil
}

func (f *fakeGateway) resultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func newTestManager(t *testing.T, def QuizDefinition, tick time.Duration) (*Manager, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{quiz: &def}
	return NewManager(gw, tick), gw
}

func TestStartDiscardsStaleSession(t *testing.T) {
	mgr, _ := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()

	view, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	require.Equal(t, StateInProgress, view.State)

	_, err = mgr.SelectAnswer(42, 10, 0, 1)
	require.NoError(t, err)

	// A retake creates a brand-new session; the old answers are gone.
	view, err = mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, view.Answers)
	assert.Equal(t, 1, mgr.ActiveSessions(), "at most one session per (student, lesson)")
}

func TestManualSubmitPersistsOnce(t *testing.T) {
	mgr, gw := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	for q, opt := range map[int]int{0: 1, 1: 0, 2: 2} {
		_, err = mgr.SelectAnswer(42, 10, q, opt)
		require.NoError(t, err)
	}

	outcome, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, outcome.Persisted)
	assert.True(t, outcome.Result.Passed)
	require.Equal(t, 1, gw.resultCount())

	// Passing also records the lesson as completed.
	require.Len(t, gw.updates, 1)
	assert.True(t, gw.updates[0].Completed)
	assert.EqualValues(t, 100, gw.updates[0].Percent)
	assert.EqualValues(t, 7, gw.updates[0].CourseID)

	// A second submit is a no-op with the same result.
	again, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, again.AlreadyGraded)
	assert.Same(t, outcome.Result, again.Result)
	assert.Equal(t, 1, gw.resultCount(), "exactly one persisted result")
}

func TestSubmitGateRejectsPartialAnswers(t *testing.T) {
	mgr, gw := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	_, err = mgr.SelectAnswer(42, 10, 0, 1)
	require.NoError(t, err)

	_, err = mgr.Submit(ctx, 42, 10)
	assert.ErrorIs(t, err, ErrUnansweredQuestions)
	assert.Zero(t, gw.resultCount())
}

func TestFailedPersistKeepsResultAndAllowsRetry(t *testing.T) {
	mgr, gw := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()
	gw.submitErr = errors.New("store unavailable")

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	for q, opt := range map[int]int{0: 1, 1: 0, 2: 2} {
		_, err = mgr.SelectAnswer(42, 10, q, opt)
		require.NoError(t, err)
	}

	outcome, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.False(t, outcome.Persisted)
	assert.Error(t, outcome.PersistErr)

	// The terminal state is retained - the student does not redo the
	// quiz - and a later submit retries the write.
	view, err := mgr.View(42, 10)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, view.State)

	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()

	retry, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, retry.Persisted)
	assert.Same(t, outcome.Result, retry.Result)
	assert.Equal(t, 1, gw.resultCount())
}

func TestPartialPersistFailureDoesNotDuplicateResult(t *testing.T) {
	mgr, gw := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()
	gw.progressErr = errors.New("progress store unavailable")

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	for q, opt := range map[int]int{0: 1, 1: 0, 2: 2} {
		_, err = mgr.SelectAnswer(42, 10, q, opt)
		require.NoError(t, err)
	}

	// The result row lands but the completion record does not.
	outcome, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.False(t, outcome.Persisted)
	assert.Error(t, outcome.PersistErr)
	require.Equal(t, 1, gw.resultCount())

	gw.mu.Lock()
	gw.progressErr = nil
	gw.mu.Unlock()

	// The retry replays only the missing completion write; the stored
	// attempt is not inserted again.
	retry, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, retry.Persisted)
	assert.Equal(t, 1, gw.resultCount(), "one stored result per attempt")
	require.Len(t, gw.updates, 1)
	assert.True(t, gw.updates[0].Completed)
}

func TestManualSubmitDuringBackgroundWriteReportsPending(t *testing.T) {
	def := threeQuestionQuiz()
	def.DurationMinutes = 1
	mgr, gw := newTestManager(t, def, time.Millisecond)
	ctx := context.Background()

	gate := make(chan struct{})
	gw.submitGate = gate

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	_, err = mgr.SelectAnswer(42, 10, 0, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := mgr.View(42, 10)
		return err == nil && v.State == StateSubmitted
	}, 5*time.Second, 5*time.Millisecond)

	// The expiry's write is stalled; a manual submit must not claim the
	// result is saved, nor start a competing write.
	outcome, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyGraded)
	assert.False(t, outcome.Persisted)
	assert.True(t, outcome.PersistPending)
	assert.Zero(t, gw.resultCount())

	close(gate)
	require.Eventually(t, func() bool {
		return gw.resultCount() == 1
	}, 5*time.Second, 5*time.Millisecond)

	retry, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, retry.Persisted)
	assert.Equal(t, 1, gw.resultCount())
}

func TestAutoSubmitAtExpiry(t *testing.T) {
	def := threeQuestionQuiz()
	def.DurationMinutes = 1
	// One simulated second per millisecond: the 60-second limit elapses
	// in about 60ms of wall time.
	mgr, gw := newTestManager(t, def, time.Millisecond)
	ctx := context.Background()

	view, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	require.NotNil(t, view.RemainingSeconds)
	assert.Equal(t, 60, *view.RemainingSeconds)

	_, err = mgr.SelectAnswer(42, 10, 0, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := mgr.View(42, 10)
		return err == nil && v.State == StateSubmitted
	}, 5*time.Second, 5*time.Millisecond, "session should auto-submit at or before the limit")

	require.Eventually(t, func() bool {
		return gw.resultCount() == 1
	}, 5*time.Second, 5*time.Millisecond)

	gw.mu.Lock()
	res := gw.results[0]
	gw.mu.Unlock()
	assert.True(t, res.AutoSubmitted)
	assert.InDelta(t, 33.3, res.Score, 0.05, "auto submit scores whatever subset is answered")

	// A manual submit racing in after expiry neither re-grades nor
	// re-persists.
	outcome, err := mgr.Submit(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyGraded)
	assert.Equal(t, 1, gw.resultCount())
}

func TestUnplayableQuizNeverStarts(t *testing.T) {
	mgr, _ := newTestManager(t, QuizDefinition{ID: 1, LessonID: 10}, 0)

	_, err := mgr.StartQuiz(context.Background(), 42, 7, 10)
	assert.ErrorIs(t, err, ErrQuizUnplayable)
	assert.Zero(t, mgr.ActiveSessions())
}

func TestAbandonDropsWithoutPersisting(t *testing.T) {
	mgr, gw := newTestManager(t, threeQuestionQuiz(), 0)
	ctx := context.Background()

	_, err := mgr.StartQuiz(ctx, 42, 7, 10)
	require.NoError(t, err)
	_, err = mgr.SelectAnswer(42, 10, 0, 1)
	require.NoError(t, err)

	mgr.Abandon(42, 10)
	assert.Zero(t, mgr.ActiveSessions())
	assert.Zero(t, gw.resultCount(), "abandoned attempts save nothing")

	_, err = mgr.View(42, 10)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestReapIdleDropsStaleSessions(t *testing.T) {
	mgr, _ := newTestManager(t, threeQuestionQuiz(), 0)

	_, err := mgr.StartQuiz(context.Background(), 42, 7, 10)
	require.NoError(t, err)

	assert.Zero(t, mgr.ReapIdle(time.Hour), "fresh sessions survive")
	assert.Equal(t, 1, mgr.ReapIdle(0))
	assert.Zero(t, mgr.ActiveSessions())
}

func TestOperationsWithoutSession(t *testing.T) {
	mgr, _ := newTestManager(t, threeQuestionQuiz(), 0)

	_, err := mgr.SelectAnswer(42, 10, 0, 0)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = mgr.Advance(42, 10, DirectionNext)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = mgr.Submit(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
