package tracker

import (
	"time"

	"github.com/ytakahashi/zikr-companion/internal/models"
)

// DefaultTargetCount is the free counter target for a new tracker.
const DefaultTargetCount = 33

var defaultTaskSpecs = []struct {
	id   string
	spec models.TaskSpec
}{
	{"default-morning-tasbih", models.TaskSpec{
		Title:           "Morning Tasbih",
		ArabicText:      "سُبْحَانَ ٱللَّٰهِ",
		Transliteration: "SubhanAllah",
		Meaning:         "Glory be to Allah",
		TargetCount:     33,
	}},
	{"default-praise-allah", models.TaskSpec{
		Title:           "Praise Allah",
		ArabicText:      "ٱلْحَمْدُ لِلَّٰهِ",
		Transliteration: "Alhamdulillah",
		Meaning:         "All praise is due to Allah",
		TargetCount:     33,
	}},
	{"default-allah-is-greatest", models.TaskSpec{
		Title:           "Allah is Greatest",
		ArabicText:      "ٱللَّٰهُ أَكْبَرُ",
		Transliteration: "Allahu Akbar",
		Meaning:         "Allah is the Greatest",
		TargetCount:     34,
	}},
	{"default-evening-dhikr", models.TaskSpec{
		Title:           "Evening Dhikr",
		ArabicText:      "لَا إِلَٰهَ إِلَّا ٱللَّٰهُ",
		Transliteration: "La ilaha illallah",
		Meaning:         "There is no god but Allah",
		TargetCount:     100,
	}},
	{"default-seeking-forgiveness", models.TaskSpec{
		Title:           "Seeking Forgiveness",
		ArabicText:      "أَسْتَغْفِرُ ٱللَّٰهَ",
		Transliteration: "Astaghfirullah",
		Meaning:         "I seek forgiveness from Allah",
		TargetCount:     70,
	}},
}

// DefaultTasks returns the built-in task set, stamped with createdAt.
func DefaultTasks(createdAt time.Time) []models.ZikrTask {
	tasks := make([]models.ZikrTask, 0, len(defaultTaskSpecs))
	for _, d := range defaultTaskSpecs {
		tasks = append(tasks, newTask(d.id, d.spec, createdAt))
	}
	return tasks
}

// DefaultState returns the state of a tracker that has never been saved.
func DefaultState(now time.Time) *models.TrackerState {
	return &models.TrackerState{
		Tasks:       DefaultTasks(now),
		TargetCount: DefaultTargetCount,
		Mode:        models.ModeTarget,
		Settings:    models.DefaultSettings(),
	}
}

func newTask(id string, spec models.TaskSpec, createdAt time.Time) models.ZikrTask {
	return models.ZikrTask{
		ID:              id,
		Title:           spec.Title,
		ArabicText:      spec.ArabicText,
		Transliteration: spec.Transliteration,
		Meaning:         spec.Meaning,
		TargetCount:     spec.TargetCount,
		CompletedDates:  []string{},
		CreatedAt:       createdAt,
		IsCustom:        spec.IsCustom,
	}
}
