package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsPatch_Apply(t *testing.T) {
	off := false
	reminder := "21:00"
	got := SettingsPatch{VibrationEnabled: &off, ReminderTime: &reminder}.Apply(DefaultSettings())

	assert.True(t, got.SoundEnabled)
	assert.False(t, got.VibrationEnabled)
	assert.True(t, got.ShowTransliteration)
	assert.True(t, got.ShowMeaning)
	assert.Equal(t, "21:00", got.ReminderTime)

	assert.Equal(t, DefaultSettings(), SettingsPatch{}.Apply(DefaultSettings()))
}

func TestTrackerState_CloneIsDeep(t *testing.T) {
	orig := &TrackerState{
		Tasks: []ZikrTask{
			{ID: "a", CompletedDates: []string{"2024-03-09"}},
			{ID: "b", CompletedDates: []string{}},
		},
		CurrentCount: 4,
	}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.Tasks[0].CompletedDates[0] = "changed"
	c.Tasks[1].ID = "z"
	c.CurrentCount = 9
	assert.Equal(t, "2024-03-09", orig.Tasks[0].CompletedDates[0])
	assert.Equal(t, "b", orig.Tasks[1].ID)
	assert.Equal(t, 4, orig.CurrentCount)
	assert.NotNil(t, c.Tasks[1].CompletedDates)
}

func TestZikrTask_CompletedOn(t *testing.T) {
	task := ZikrTask{CompletedDates: []string{"2024-03-09", "2024-03-10"}}
	assert.True(t, task.CompletedOn("2024-03-10"))
	assert.False(t, task.CompletedOn("2024-03-11"))
}

func TestCounterMode_Valid(t *testing.T) {
	assert.True(t, ModeTarget.Valid())
	assert.True(t, ModeInfinite.Valid())
	assert.False(t, CounterMode("").Valid())
}

func TestCoordinate_Validate(t *testing.T) {
	assert.NoError(t, Coordinate{Latitude: 21.4225, Longitude: 39.8262}.Validate())
	assert.NoError(t, Coordinate{Latitude: -90, Longitude: 180}.Validate())
	assert.Error(t, Coordinate{Latitude: 90.5}.Validate())
	assert.Error(t, Coordinate{Longitude: -181}.Validate())
}
