package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ytakahashi/zikr-companion/internal/models"
)

// Tracker owns one user's TrackerState and writes it through to a Store
// after every mutation. Methods are safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	store Store
	key   string
	clock Clock
	newID func() string
	state *models.TrackerState
}

type Option func(*Tracker)

// WithClock overrides the clock used for calendar dates and timestamps.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithIDGenerator overrides how new task ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// Open hydrates a tracker from store. A missing snapshot, a load failure or
// an empty task list falls back to the built-in defaults; load failures are
// logged and never returned.
func Open(ctx context.Context, store Store, key string, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		key:   key,
		clock: SystemClock{},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}

	now := t.clock.Now()
	state, err := store.Load(ctx, key)
	switch {
	case errors.Is(err, ErrStateNotFound):
		log.Debug().Str("key", key).Msg("no saved tracker state, using defaults")
		state = DefaultState(now)
	case err != nil:
		log.Warn().Err(err).Str("key", key).Msg("failed to load tracker state, using defaults")
		state = DefaultState(now)
	case state == nil:
		state = DefaultState(now)
	}

	if len(state.Tasks) == 0 {
		state.Tasks = DefaultTasks(now)
	}
	if !state.Mode.Valid() {
		state.Mode = models.ModeTarget
	}
	for i := range state.Tasks {
		if state.Tasks[i].CompletedDates == nil {
			state.Tasks[i].CompletedDates = []string{}
		}
	}

	t.state = state
	return t
}

// Key returns the storage key this tracker persists under.
func (t *Tracker) Key() string {
	return t.key
}

func (t *Tracker) today() string {
	return DateOf(t.clock.Now())
}

// save writes the full state. The caller must hold t.mu.
func (t *Tracker) save(ctx context.Context) error {
	if err := t.store.Save(ctx, t.key, t.state.Clone()); err != nil {
		log.Warn().Err(err).Str("key", t.key).Msg("failed to save tracker state, keeping in-memory state")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

func (t *Tracker) findTask(id string) *models.ZikrTask {
	for i := range t.state.Tasks {
		if t.state.Tasks[i].ID == id {
			return &t.state.Tasks[i]
		}
	}
	return nil
}

func markCompleted(task *models.ZikrTask, date string) {
	task.IsCompleted = true
	if !task.CompletedOn(date) {
		task.CompletedDates = append(task.CompletedDates, date)
	}
}

// Snapshot returns a deep copy of the current state.
func (t *Tracker) Snapshot() *models.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// IncrementCount advances the free counter and returns the new count.
func (t *Tracker) IncrementCount(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentCount++
	return t.state.CurrentCount, t.save(ctx)
}

// ResetCount sets the free counter back to zero.
func (t *Tracker) ResetCount(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentCount = 0
	return t.save(ctx)
}

// SetTargetCount sets the free counter target. No bound is enforced.
func (t *Tracker) SetTargetCount(ctx context.Context, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.TargetCount = n
	return t.save(ctx)
}

// SetMode sets the free counter mode.
func (t *Tracker) SetMode(ctx context.Context, m models.CounterMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Mode = m
	return t.save(ctx)
}

// AddTask appends a new task with a fresh id and no progress.
func (t *Tracker) AddTask(ctx context.Context, spec models.TaskSpec) (models.ZikrTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for t.findTask(id) != nil {
		id = t.newID()
	}
	task := newTask(id, spec, t.clock.Now())
	t.state.Tasks = append(t.state.Tasks, task)
	return task, t.save(ctx)
}

// DeleteTask removes a task.
func (t *Tracker) DeleteTask(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.state.Tasks {
		if t.state.Tasks[i].ID == id {
			t.state.Tasks = append(t.state.Tasks[:i], t.state.Tasks[i+1:]...)
			return t.save(ctx)
		}
	}
	return ErrTaskNotFound
}

// IncrementTaskCount adds one to a task's count, completing it for today
// once the target is reached.
func (t *Tracker) IncrementTaskCount(ctx context.Context, id string) (models.ZikrTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task := t.findTask(id)
	if task == nil {
		return models.ZikrTask{}, ErrTaskNotFound
	}
	task.CurrentCount++
	if task.CurrentCount >= task.TargetCount {
		markCompleted(task, t.today())
	}
	out := cloneTask(*task)
	return out, t.save(ctx)
}

// CompleteTask forces a task to its target and records today's completion.
// Completing an already completed task again the same day changes nothing.
func (t *Tracker) CompleteTask(ctx context.Context, id string) (models.ZikrTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task := t.findTask(id)
	if task == nil {
		return models.ZikrTask{}, ErrTaskNotFound
	}
	task.CurrentCount = task.TargetCount
	markCompleted(task, t.today())
	out := cloneTask(*task)
	return out, t.save(ctx)
}

// ResetDailyTasks clears every task's progress. Completion history is kept.
func (t *Tracker) ResetDailyTasks(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetTasks()
	return t.save(ctx)
}

// ResetDailyTasksIfNewDay resets task progress when the last reset happened
// on an earlier calendar day. It reports whether a reset took place.
func (t *Tracker) ResetDailyTasksIfNewDay(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	switch t.state.LastResetDate {
	case today:
		return false, nil
	case "":
		// never reset before: keep whatever progress was loaded
		t.state.LastResetDate = today
		return false, t.save(ctx)
	}
	t.resetTasks()
	return true, t.save(ctx)
}

func (t *Tracker) resetTasks() {
	for i := range t.state.Tasks {
		t.state.Tasks[i].CurrentCount = 0
		t.state.Tasks[i].IsCompleted = false
	}
	t.state.LastResetDate = t.today()
}

// UpdateSettings merges patch into the settings and returns the result.
func (t *Tracker) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Settings = patch.Apply(t.state.Settings)
	return t.state.Settings, t.save(ctx)
}

// Streak returns the number of consecutive days with at least one
// completed task. See CountStreak.
func (t *Tracker) Streak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CountStreak(t.state.Tasks, t.clock.Now())
}

// Progress summarises today's task completion.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Progress counts tasks currently completed.
func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{Total: len(t.state.Tasks)}
	for _, task := range t.state.Tasks {
		if task.IsCompleted {
			p.Completed++
		}
	}
	return p
}

func cloneTask(task models.ZikrTask) models.ZikrTask {
	task.CompletedDates = append([]string{}, task.CompletedDates...)
	return task
}
