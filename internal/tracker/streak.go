package tracker

import (
	"time"

	"github.com/ytakahashi/zikr-companion/internal/models"
)

// MaxStreakDays bounds how far back CountStreak looks.
const MaxStreakDays = 365

// CountStreak walks backwards from now's calendar day and counts
// consecutive days on which any task was completed. Today not being active
// yet does not break the streak; any earlier gap does.
func CountStreak(tasks []models.ZikrTask, now time.Time) int {
	active := make(map[string]struct{})
	for _, task := range tasks {
		for _, d := range task.CompletedDates {
			active[d] = struct{}{}
		}
	}
	if len(active) == 0 {
		return 0
	}

	// noon keeps AddDate clear of DST transitions
	day := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	streak := 0
	for i := 0; i < MaxStreakDays; i++ {
		if _, ok := active[DateOf(day.AddDate(0, 0, -i))]; ok {
			streak++
			continue
		}
		if i == 0 {
			continue
		}
		break
	}
	return streak
}
