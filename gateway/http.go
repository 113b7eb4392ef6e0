package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"lms/engine"
)

// RemoteGateway speaks to a remote progress store over HTTP. Used when
// the service runs in "http" mode and another deployment owns the
// durable records.
type RemoteGateway struct {
	client  *resty.Client
	baseURL string
}

// NewRemoteGateway builds a client for the store at baseURL.
func NewRemoteGateway(baseURL string) *RemoteGateway {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &RemoteGateway{client: client, baseURL: baseURL}
}

// GetLessonQuiz fetches a lesson's quiz definition. A 404 is the
// explicit "no quiz" result.
func (g *RemoteGateway) GetLessonQuiz(ctx context.Context, lessonID uint) (*engine.QuizDefinition, error) {
	var def engine.QuizDefinition
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&def).
		Get(fmt.Sprintf("%s/api/lessons/%d/quiz", g.baseURL, lessonID))
	if err != nil {
		return nil, fmt.Errorf("fetch quiz for lesson %d: %w", lessonID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, engine.ErrNoQuiz
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch quiz for lesson %d: store returned %d", lessonID, resp.StatusCode())
	}
	return &def, nil
}

// SubmitQuizResult records one graded attempt.
func (g *RemoteGateway) SubmitQuizResult(ctx context.Context, req engine.SubmitResultRequest) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("%s/api/quiz-results", g.baseURL))
	if err != nil {
		return fmt.Errorf("submit quiz result: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("submit quiz result: store returned %d", resp.StatusCode())
	}
	return nil
}

// SetLessonProgress records lesson completion or watch progress.
func (g *RemoteGateway) SetLessonProgress(ctx context.Context, upd engine.ProgressUpdate) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(upd).
		Put(fmt.Sprintf("%s/api/progress", g.baseURL))
	if err != nil {
		return fmt.Errorf("set lesson progress: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("set lesson progress: store returned %d", resp.StatusCode())
	}
	return nil
}

// GetCourseProgress fetches the authoritative course snapshot.
func (g *RemoteGateway) GetCourseProgress(ctx context.Context, studentID, courseID uint) (*engine.CourseSnapshot, error) {
	var snap engine.CourseSnapshot
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&snap).
		Get(fmt.Sprintf("%s/api/students/%d/courses/%d/progress", g.baseURL, studentID, courseID))
	if err != nil {
		return nil, fmt.Errorf("fetch course progress: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch course progress: store returned %d", resp.StatusCode())
	}
	if snap.Progress == nil {
		snap.Progress = make(map[uint]engine.LessonProgress)
	}
	return &snap, nil
}
