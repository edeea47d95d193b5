package models

import (
	"slices"
	"time"
)

// ZikrTask represents a recurring recitation goal
type ZikrTask struct {
	ID              string    `firestore:"id" json:"id" yaml:"id"`
	Title           string    `firestore:"title" json:"title" yaml:"title"`
	ArabicText      string    `firestore:"arabicText" json:"arabicText" yaml:"arabicText"`
	Transliteration string    `firestore:"transliteration" json:"transliteration" yaml:"transliteration"`
	Meaning         string    `firestore:"meaning" json:"meaning" yaml:"meaning"`
	TargetCount     int       `firestore:"targetCount" json:"targetCount" yaml:"targetCount"`
	CurrentCount    int       `firestore:"currentCount" json:"currentCount" yaml:"currentCount"`
	IsCompleted     bool      `firestore:"isCompleted" json:"isCompleted" yaml:"isCompleted"`
	CompletedDates  []string  `firestore:"completedDates" json:"completedDates" yaml:"completedDates"`
	CreatedAt       time.Time `firestore:"createdAt" json:"createdAt" yaml:"createdAt"`
	IsCustom        bool      `firestore:"isCustom" json:"isCustom" yaml:"isCustom"`
}

// TaskSpec holds the user-supplied fields of a new task.
type TaskSpec struct {
	Title           string `json:"title"`
	ArabicText      string `json:"arabicText"`
	Transliteration string `json:"transliteration"`
	Meaning         string `json:"meaning"`
	TargetCount     int    `json:"targetCount"`
	IsCustom        bool   `json:"isCustom"`
}

// CompletedOn reports whether the task reached its target on date (YYYY-MM-DD).
func (t *ZikrTask) CompletedOn(date string) bool {
	for _, d := range t.CompletedDates {
		if d == date {
			return true
		}
	}
	return false
}

// CounterMode selects how the free counter treats its target.
type CounterMode string

const (
	ModeTarget   CounterMode = "target"
	ModeInfinite CounterMode = "infinite"
)

// Valid reports whether m is a known mode.
func (m CounterMode) Valid() bool {
	return m == ModeTarget || m == ModeInfinite
}

// Settings are the per-user preferences persisted with the tracker.
type Settings struct {
	SoundEnabled        bool   `firestore:"soundEnabled" json:"soundEnabled" yaml:"soundEnabled"`
	VibrationEnabled    bool   `firestore:"vibrationEnabled" json:"vibrationEnabled" yaml:"vibrationEnabled"`
	ShowTransliteration bool   `firestore:"showTransliteration" json:"showTransliteration" yaml:"showTransliteration"`
	ShowMeaning         bool   `firestore:"showMeaning" json:"showMeaning" yaml:"showMeaning"`
	ReminderTime        string `firestore:"reminderTime" json:"reminderTime" yaml:"reminderTime"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings() Settings {
	return Settings{
		SoundEnabled:        true,
		VibrationEnabled:    true,
		ShowTransliteration: true,
		ShowMeaning:         true,
	}
}

// SettingsPatch is a partial Settings update; nil fields are left alone.
type SettingsPatch struct {
	SoundEnabled        *bool   `json:"soundEnabled,omitempty"`
	VibrationEnabled    *bool   `json:"vibrationEnabled,omitempty"`
	ShowTransliteration *bool   `json:"showTransliteration,omitempty"`
	ShowMeaning         *bool   `json:"showMeaning,omitempty"`
	ReminderTime        *string `json:"reminderTime,omitempty"`
}

// Apply shallow-merges p into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.VibrationEnabled != nil {
		s.VibrationEnabled = *p.VibrationEnabled
	}
	if p.ShowTransliteration != nil {
		s.ShowTransliteration = *p.ShowTransliteration
	}
	if p.ShowMeaning != nil {
		s.ShowMeaning = *p.ShowMeaning
	}
	if p.ReminderTime != nil {
		s.ReminderTime = *p.ReminderTime
	}
	return s
}

// TrackerState is the full snapshot persisted after every mutation
type TrackerState struct {
	Tasks         []ZikrTask  `firestore:"tasks" json:"tasks" yaml:"tasks"`
	CurrentCount  int         `firestore:"currentCount" json:"currentCount" yaml:"currentCount"`
	TargetCount   int         `firestore:"targetCount" json:"targetCount" yaml:"targetCount"`
	Mode          CounterMode `firestore:"mode" json:"mode" yaml:"mode"`
	Settings      Settings    `firestore:"settings" json:"settings" yaml:"settings"`
	LastResetDate string      `firestore:"lastResetDate" json:"lastResetDate,omitempty" yaml:"lastResetDate,omitempty"`
}

// Clone returns a deep copy of s.
func (s *TrackerState) Clone() *TrackerState {
	out := *s
	out.Tasks = make([]ZikrTask, len(s.Tasks))
	for i, t := range s.Tasks {
		t.CompletedDates = slices.Clone(t.CompletedDates)
		out.Tasks[i] = t
	}
	return &out
}
