package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/qibla"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// UserHeader carries the caller's user id. Authentication happens upstream.
const UserHeader = "X-User-ID"

// PersistedHeader is set to "false" when a mutation could not be saved.
const PersistedHeader = "X-Persisted"

const anonymousUser = "anonymous"

type APIHandler struct {
	trackers *tracker.Registry
}

func NewAPIHandler(trackers *tracker.Registry) *APIHandler {
	return &APIHandler{trackers: trackers}
}

// Register mounts the API routes on e.
func (h *APIHandler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/qibla", h.GetQibla)

	t := api.Group("/tracker")
	t.GET("", h.GetTracker)
	t.GET("/streak", h.GetStreak)
	t.POST("/counter/increment", h.IncrementCount)
	t.POST("/counter/reset", h.ResetCount)
	t.PUT("/counter/target", h.SetTarget)
	t.PUT("/counter/mode", h.SetMode)
	t.POST("/tasks", h.AddTask)
	t.POST("/tasks/reset", h.ResetTasks)
	t.DELETE("/tasks/:id", h.DeleteTask)
	t.POST("/tasks/:id/increment", h.IncrementTask)
	t.POST("/tasks/:id/complete", h.CompleteTask)
	t.PATCH("/settings", h.UpdateSettings)
}

func (h *APIHandler) trackerFor(c echo.Context) *tracker.Tracker {
	userID := strings.TrimSpace(c.Request().Header.Get(UserHeader))
	if userID == "" {
		userID = anonymousUser
	}
	return h.trackers.Get(c.Request().Context(), userID)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// respond writes body, mapping tracker errors to HTTP semantics. A save
// failure is not fatal: the mutation is reported with X-Persisted: false.
func respond(c echo.Context, body interface{}, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, tracker.ErrTaskNotFound):
		return errorJSON(c, http.StatusNotFound, "task not found")
	case errors.Is(err, tracker.ErrSaveFailed):
		c.Response().Header().Set(PersistedHeader, "false")
	default:
		return err
	}
	if body == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, body)
}

func parseCoordinate(c echo.Context) (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return models.Coordinate{}, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return models.Coordinate{}, errors.New("lng must be a number")
	}
	coord := models.Coordinate{Latitude: lat, Longitude: lng}
	return coord, coord.Validate()
}

func (h *APIHandler) GetQibla(c echo.Context) error {
	coord, err := parseCoordinate(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, qibla.Find(coord))
}

type trackerResponse struct {
	*models.TrackerState
	Streak   int              `json:"streak"`
	Progress tracker.Progress `json:"progress"`
}

func (h *APIHandler) GetTracker(c echo.Context) error {
	t := h.trackerFor(c)
	return c.JSON(http.StatusOK, trackerResponse{
		TrackerState: t.Snapshot(),
		Streak:       t.Streak(),
		Progress:     t.Progress(),
	})
}

func (h *APIHandler) GetStreak(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"streak": h.trackerFor(c).Streak()})
}

type counterResponse struct {
	CurrentCount  int                `json:"currentCount"`
	TargetCount   int                `json:"targetCount"`
	Mode          models.CounterMode `json:"mode"`
	TargetReached bool               `json:"targetReached"`
}

func counterOf(t *tracker.Tracker) counterResponse {
	st := t.Snapshot()
	return counterResponse{
		CurrentCount:  st.CurrentCount,
		TargetCount:   st.TargetCount,
		Mode:          st.Mode,
		TargetReached: st.Mode == models.ModeTarget && st.TargetCount > 0 && st.CurrentCount >= st.TargetCount,
	}
}

func (h *APIHandler) IncrementCount(c echo.Context) error {
	t := h.trackerFor(c)
	_, err := t.IncrementCount(c.Request().Context())
	return respond(c, counterOf(t), err)
}

func (h *APIHandler) ResetCount(c echo.Context) error {
	t := h.trackerFor(c)
	err := t.ResetCount(c.Request().Context())
	return respond(c, counterOf(t), err)
}

func (h *APIHandler) SetTarget(c echo.Context) error {
	var req struct {
		Target *int `json:"target"`
	}
	if err := c.Bind(&req); err != nil || req.Target == nil {
		return errorJSON(c, http.StatusBadRequest, "target is required")
	}
	t := h.trackerFor(c)
	err := t.SetTargetCount(c.Request().Context(), *req.Target)
	return respond(c, counterOf(t), err)
}

func (h *APIHandler) SetMode(c echo.Context) error {
	var req struct {
		Mode models.CounterMode `json:"mode"`
	}
	if err := c.Bind(&req); err != nil || !req.Mode.Valid() {
		return errorJSON(c, http.StatusBadRequest, "mode must be target or infinite")
	}
	t := h.trackerFor(c)
	err := t.SetMode(c.Request().Context(), req.Mode)
	return respond(c, counterOf(t), err)
}

func (h *APIHandler) AddTask(c echo.Context) error {
	var spec models.TaskSpec
	if err := c.Bind(&spec); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid task")
	}
	spec.Title = strings.TrimSpace(spec.Title)
	if spec.Title == "" {
		return errorJSON(c, http.StatusBadRequest, "title is required")
	}
	if spec.TargetCount < 1 {
		return errorJSON(c, http.StatusBadRequest, "targetCount must be at least 1")
	}
	spec.IsCustom = true

	task, err := h.trackerFor(c).AddTask(c.Request().Context(), spec)
	if err == nil {
		return c.JSON(http.StatusCreated, task)
	}
	return respond(c, task, err)
}

func (h *APIHandler) DeleteTask(c echo.Context) error {
	err := h.trackerFor(c).DeleteTask(c.Request().Context(), c.Param("id"))
	return respond(c, nil, err)
}

func (h *APIHandler) IncrementTask(c echo.Context) error {
	task, err := h.trackerFor(c).IncrementTaskCount(c.Request().Context(), c.Param("id"))
	return respond(c, task, err)
}

func (h *APIHandler) CompleteTask(c echo.Context) error {
	task, err := h.trackerFor(c).CompleteTask(c.Request().Context(), c.Param("id"))
	return respond(c, task, err)
}

func (h *APIHandler) ResetTasks(c echo.Context) error {
	t := h.trackerFor(c)
	err := t.ResetDailyTasks(c.Request().Context())
	return respond(c, t.Snapshot().Tasks, err)
}

func (h *APIHandler) UpdateSettings(c echo.Context) error {
	var patch models.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid settings")
	}
	settings, err := h.trackerFor(c).UpdateSettings(c.Request().Context(), patch)
	return respond(c, settings, err)
}
