package review

import (
	"math"
	"time"

	"github.com/gmarini/reviewdesk/internal/domain"
)

// Spacing parameters per difficulty. The first review of a topic waits the
// base interval; every later review multiplies the actually elapsed gap by
// the growth factor, so easy topics drift out fast and difficult ones stay
// close.
var (
	baseIntervalDays = map[domain.Difficulty]int{
		domain.DifficultyDifficult: 1,
		domain.DifficultyMedium:    3,
		domain.DifficultyEasy:      7,
	}
	growthFactor = map[domain.Difficulty]float64{
		domain.DifficultyDifficult: 1.2,
		domain.DifficultyMedium:    1.5,
		domain.DifficultyEasy:      2.0,
	}
)

// NextIntervalDays returns how many days after reviewDate the next review is
// due. lastReview is nil for a topic's first review. The result is never
// below one day.
func NextIntervalDays(difficulty domain.Difficulty, lastReview *time.Time, reviewDate time.Time) int {
	if lastReview == nil {
		return baseIntervalDays[difficulty]
	}

	elapsed := domain.DaysBetween(*lastReview, reviewDate)
	if elapsed < 1 {
		elapsed = 1
	}

	interval := int(math.Round(float64(elapsed) * growthFactor[difficulty]))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// NextReviewDate applies NextIntervalDays to the review date.
func NextReviewDate(difficulty domain.Difficulty, lastReview *time.Time, reviewDate time.Time) time.Time {
	days := NextIntervalDays(difficulty, lastReview, reviewDate)
	return domain.DateOf(reviewDate).AddDate(0, 0, days)
}
