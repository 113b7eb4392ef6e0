package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lms/config"
	controllers "lms/controllers/course"
	"lms/database"
	"lms/engine"
	"lms/gateway"
	"lms/middleware"
	course "lms/models/course"
	"lms/routers/courseRoutes"
)

type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	token string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	config.LoadConfig()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	database.RunMigrations(db)

	gw := gateway.NewStoreGateway(db)
	mgr := engine.NewManager(gw, time.Millisecond)
	controllers.Init(mgr, gw)

	app := fiber.New()
	courseRoutes.SetupCourseRoutes(app)

	token, err := middleware.GenerateJWT(42, "Test Student", "student@example.com")
	require.NoError(t, err)

	return &testApp{app: app, db: db, token: token}
}

func (ta *testApp) request(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+ta.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (ta *testApp) seed(t *testing.T) (lessonIDs []uint) {
	t.Helper()
	lessons := []course.Lesson{
		{CourseID: 7, Title: "Intro", LessonType: "reading", Position: 0, IsPublished: true},
		{CourseID: 7, Title: "Checkpoint", LessonType: "quiz", Position: 1, IsPublished: true},
	}
	for i := range lessons {
		require.NoError(t, ta.db.Create(&lessons[i]).Error)
		lessonIDs = append(lessonIDs, lessons[i].ID)
	}

	quiz := course.Quiz{LessonID: lessonIDs[1], Title: "Checkpoint", PassingScore: 70, IsActive: true}
	require.NoError(t, ta.db.Create(&quiz).Error)
	questions := []course.QuizQuestion{
		{QuizID: quiz.ID, QuestionText: "Q1", Options: datatypes.JSON(`["a","b","c"]`), CorrectOption: 1, QuestionOrder: 0},
		{QuizID: quiz.ID, QuestionText: "Q2", Options: datatypes.JSON(`["x","y"]`), CorrectOption: 0, QuestionOrder: 1},
	}
	for i := range questions {
		require.NoError(t, ta.db.Create(&questions[i]).Error)
	}
	return lessonIDs
}

func TestRoutesRequireAuth(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/course/7/progress", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetCourseProgress(t *testing.T) {
	ta := newTestApp(t)
	lessonIDs := ta.seed(t)

	resp, env := ta.request(t, http.MethodGet, "/course/7/progress", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Status)

	lessons := env.Data["lessons"].([]interface{})
	require.Len(t, lessons, 2)
	first := lessons[0].(map[string]interface{})
	second := lessons[1].(map[string]interface{})
	assert.EqualValues(t, lessonIDs[0], first["lesson"].(map[string]interface{})["id"])
	assert.True(t, first["accessible"].(bool))
	assert.False(t, second["accessible"].(bool), "gated until the first lesson completes")
	assert.EqualValues(t, 0, env.Data["overall_percent"])
}

func TestQuizLockedBehindPriorLesson(t *testing.T) {
	ta := newTestApp(t)
	lessonIDs := ta.seed(t)

	path := fmt.Sprintf("/course/7/lesson/%d/quiz/start", lessonIDs[1])
	resp, env := ta.request(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Lesson is locked!", env.Message)
}

func TestFullQuizFlow(t *testing.T) {
	ta := newTestApp(t)
	lessonIDs := ta.seed(t)

	// Complete the intro lesson to unlock the quiz lesson.
	completePath := fmt.Sprintf("/course/7/lesson/%d/complete", lessonIDs[0])
	resp, env := ta.request(t, http.MethodPost, completePath, fiber.Map{"time_spent_seconds": 90})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, env.Data["persisted"])

	base := fmt.Sprintf("/course/7/lesson/%d/quiz", lessonIDs[1])

	resp, env = ta.request(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, env.Data["has_quiz"])
	questions := env.Data["questions"].([]interface{})
	require.Len(t, questions, 2)
	_, leaked := questions[0].(map[string]interface{})["correctOption"]
	assert.False(t, leaked, "correct option must not reach a live attempt")

	resp, _ = ta.request(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Submitting with unanswered questions is rejected.
	resp, _ = ta.request(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, base+"/answer", fiber.Map{"question_index": 0, "option_index": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ta.request(t, http.MethodPost, base+"/answer", fiber.Map{"question_index": 1, "option_index": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = ta.request(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, env.Data["persisted"])
	result := env.Data["result"].(map[string]interface{})
	assert.InDelta(t, 50, result["score"].(float64), 0.1)
	assert.Equal(t, false, result["passed"])

	review := env.Data["review"].([]interface{})
	require.Len(t, review, 2)
	firstReview := review[0].(map[string]interface{})
	assert.Equal(t, true, firstReview["correct"])
	assert.EqualValues(t, 1, firstReview["correctOption"])

	var results []course.QuizResult
	require.NoError(t, ta.db.Where("student_id = ?", 42).Find(&results).Error)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].AttemptNumber)
}

func TestVideoWatchGate(t *testing.T) {
	ta := newTestApp(t)

	video := course.Lesson{CourseID: 8, Title: "Only video", LessonType: "video", Position: 0, DurationMinutes: 10, IsPublished: true}
	require.NoError(t, ta.db.Create(&video).Error)

	completePath := fmt.Sprintf("/course/8/lesson/%d/complete", video.ID)
	watchPath := fmt.Sprintf("/course/8/lesson/%d/watch", video.ID)

	// Not watched enough yet.
	resp, _ := ta.request(t, http.MethodPost, completePath, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := ta.request(t, http.MethodPost, watchPath, fiber.Map{
		"watched_seconds": 540, "video_duration_seconds": 600,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, env.Data["can_complete"])

	resp, _ = ta.request(t, http.MethodPost, completePath, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
