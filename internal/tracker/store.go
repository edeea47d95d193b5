package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/ytakahashi/zikr-companion/internal/models"
)

var (
	// ErrStateNotFound is returned by a Store when no snapshot exists for a key.
	ErrStateNotFound = errors.New("tracker state not found")

	// ErrTaskNotFound is returned by task operations given an unknown id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSaveFailed wraps a persistence failure. The in-memory mutation that
	// triggered the save has still been applied.
	ErrSaveFailed = errors.New("failed to save tracker state")
)

// DefaultKey is the storage key used when a single tracker is persisted.
const DefaultKey = "zikr-tracker"

// Store persists full TrackerState snapshots under a key.
type Store interface {
	Load(ctx context.Context, key string) (*models.TrackerState, error)
	Save(ctx context.Context, key string, state *models.TrackerState) error
}

// Clock supplies the current time. Calendar dates are taken in the
// location of the returned time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, optionally in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// DateLayout is the calendar-date format stored in ZikrTask.CompletedDates.
const DateLayout = "2006-01-02"

// DateOf formats t as a calendar date in its own location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}
