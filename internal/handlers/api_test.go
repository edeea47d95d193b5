package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/services"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type failingStore struct {
	*services.MemoryStore
}

func (failingStore) Save(context.Context, string, *models.TrackerState) error {
	return errors.New("disk full")
}

func newTestServer(store tracker.Store) *echo.Echo {
	clock := fixedClock(time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC))
	reg := tracker.NewRegistry(store, "zikr:", tracker.WithClock(clock))
	e := echo.New()
	NewAPIHandler(reg).Register(e)
	return e
}

func doRequest(e *echo.Echo, method, path, body, user string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGetQibla(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodGet, "/api/qibla?lat=51.5074&lng=-0.1278", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]interface{}](t, rec)
	assert.InDelta(t, 119, got["bearing"].(float64), 1.5)
	assert.Equal(t, "ESE", got["compass"])

	rec = doRequest(e, http.MethodGet, "/api/qibla?lat=abc&lng=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/qibla?lat=95&lng=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTracker_Defaults(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodGet, "/api/tracker", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Tasks    []models.ZikrTask `json:"tasks"`
		Mode     string            `json:"mode"`
		Streak   int               `json:"streak"`
		Progress tracker.Progress  `json:"progress"`
	}](t, rec)
	assert.Len(t, got.Tasks, 5)
	assert.Equal(t, "target", got.Mode)
	assert.Equal(t, 0, got.Streak)
	assert.Equal(t, tracker.Progress{Completed: 0, Total: 5}, got.Progress)
}

func TestCounterEndpoints(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodPut, "/api/tracker/counter/target", `{"target":2}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	doRequest(e, http.MethodPost, "/api/tracker/counter/increment", "", "alice")
	rec = doRequest(e, http.MethodPost, "/api/tracker/counter/increment", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[counterResponse](t, rec)
	assert.Equal(t, counterResponse{CurrentCount: 2, TargetCount: 2, Mode: models.ModeTarget, TargetReached: true}, got)

	rec = doRequest(e, http.MethodPut, "/api/tracker/counter/mode", `{"mode":"infinite"}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[counterResponse](t, rec).TargetReached)

	rec = doRequest(e, http.MethodPut, "/api/tracker/counter/mode", `{"mode":"sideways"}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPut, "/api/tracker/counter/target", `{}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/api/tracker/counter/reset", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[counterResponse](t, rec).CurrentCount)

	// other users are unaffected
	rec = doRequest(e, http.MethodPost, "/api/tracker/counter/increment", "", "bob")
	assert.Equal(t, 1, decode[counterResponse](t, rec).CurrentCount)
}

func TestTaskEndpoints(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodPost, "/api/tracker/tasks", `{"title":"Salawat","targetCount":2}`, "alice")
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[models.ZikrTask](t, rec)
	assert.NotEmpty(t, task.ID)
	assert.True(t, task.IsCustom)

	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/"+task.ID+"/increment", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.ZikrTask](t, rec).IsCompleted)

	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/"+task.ID+"/increment", "", "alice")
	got := decode[models.ZikrTask](t, rec)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, []string{"2024-03-10"}, got.CompletedDates)

	rec = doRequest(e, http.MethodGet, "/api/tracker/streak", "", "alice")
	assert.Equal(t, map[string]int{"streak": 1}, decode[map[string]int](t, rec))

	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/default-evening-dhikr/complete", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decode[models.ZikrTask](t, rec).CurrentCount)

	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/reset", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, tk := range decode[[]models.ZikrTask](t, rec) {
		assert.Equal(t, 0, tk.CurrentCount)
		assert.False(t, tk.IsCompleted)
	}

	rec = doRequest(e, http.MethodDelete, "/api/tracker/tasks/"+task.ID, "", "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/"+task.ID+"/increment", "", "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks/nope/complete", "", "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddTask_Validation(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodPost, "/api/tracker/tasks", `{"title":"  ","targetCount":3}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks", `{"title":"x","targetCount":0}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(e, http.MethodPost, "/api/tracker/tasks", `{not json`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSettings(t *testing.T) {
	e := newTestServer(services.NewMemoryStore())

	rec := doRequest(e, http.MethodPatch, "/api/tracker/settings", `{"soundEnabled":false,"reminderTime":"04:45"}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Settings](t, rec)
	assert.False(t, got.SoundEnabled)
	assert.True(t, got.VibrationEnabled)
	assert.Equal(t, "04:45", got.ReminderTime)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	e := newTestServer(failingStore{services.NewMemoryStore()})

	rec := doRequest(e, http.MethodPost, "/api/tracker/counter/increment", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", rec.Header().Get(PersistedHeader))
	assert.Equal(t, 1, decode[counterResponse](t, rec).CurrentCount)

	rec = doRequest(e, http.MethodPost, "/api/tracker/counter/increment", "", "alice")
	assert.Equal(t, 2, decode[counterResponse](t, rec).CurrentCount)
}
