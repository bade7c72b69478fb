package review

import (
	"testing"
	"time"

	"github.com/gmarini/reviewdesk/internal/domain"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestNextIntervalDays_FirstReview(t *testing.T) {
	cases := []struct {
		difficulty domain.Difficulty
		want       int
	}{
		{domain.DifficultyDifficult, 1},
		{domain.DifficultyMedium, 3},
		{domain.DifficultyEasy, 7},
	}
	for _, tc := range cases {
		got := NextIntervalDays(tc.difficulty, nil, time.Now())
		if got != tc.want {
			t.Errorf("first review %s: got %d, want %d", tc.difficulty, got, tc.want)
		}
	}
}

func TestNextIntervalDays_Repeat(t *testing.T) {
	cases := []struct {
		name       string
		difficulty domain.Difficulty
		last       string
		review     string
		want       int
	}{
		{"medium grows elapsed by 1.5, rounded", domain.DifficultyMedium, "2024-01-10", "2024-01-17", 11},
		{"difficult grows elapsed by 1.2", domain.DifficultyDifficult, "2024-01-10", "2024-01-20", 12},
		{"easy doubles elapsed", domain.DifficultyEasy, "2024-01-10", "2024-01-13", 6},
		{"same-day repeat counts as one elapsed day", domain.DifficultyDifficult, "2024-01-10", "2024-01-10", 1},
		{"same-day repeat easy", domain.DifficultyEasy, "2024-01-10", "2024-01-10", 2},
		{"review date before last review clamps to one day", domain.DifficultyMedium, "2024-01-10", "2024-01-05", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last := mustDate(t, tc.last)
			got := NextIntervalDays(tc.difficulty, &last, mustDate(t, tc.review))
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNextIntervalDays_Monotonic(t *testing.T) {
	// For any elapsed gap, an easier rating never shortens the interval,
	// and the interval never drops below one day.
	last := mustDate(t, "2024-01-10")
	for _, elapsed := range []int{0, 1, 2, 3, 5, 7, 14, 30, 90} {
		review := last.AddDate(0, 0, elapsed)

		difficult := NextIntervalDays(domain.DifficultyDifficult, &last, review)
		medium := NextIntervalDays(domain.DifficultyMedium, &last, review)
		easy := NextIntervalDays(domain.DifficultyEasy, &last, review)

		if easy < medium || medium < difficult {
			t.Errorf("elapsed %d: intervals not monotonic: difficult=%d medium=%d easy=%d",
				elapsed, difficult, medium, easy)
		}
		if difficult < 1 {
			t.Errorf("elapsed %d: interval below one day: %d", elapsed, difficult)
		}
	}

	first := []int{
		NextIntervalDays(domain.DifficultyDifficult, nil, last),
		NextIntervalDays(domain.DifficultyMedium, nil, last),
		NextIntervalDays(domain.DifficultyEasy, nil, last),
	}
	if first[2] < first[1] || first[1] < first[0] || first[0] < 1 {
		t.Errorf("first-review intervals not monotonic: %v", first)
	}
}

func TestNextReviewDate(t *testing.T) {
	// First Easy review on Jan 10 waits the 7-day base interval.
	got := NextReviewDate(domain.DifficultyEasy, nil, mustDate(t, "2024-01-10"))
	if want := mustDate(t, "2024-01-17"); !got.Equal(want) {
		t.Errorf("first easy review: got %s, want %s", domain.FormatDate(got), domain.FormatDate(want))
	}

	// Second Medium review 7 days later: round(7 * 1.5) = 11 days out.
	last := mustDate(t, "2024-01-10")
	got = NextReviewDate(domain.DifficultyMedium, &last, mustDate(t, "2024-01-17"))
	if want := mustDate(t, "2024-01-28"); !got.Equal(want) {
		t.Errorf("repeat medium review: got %s, want %s", domain.FormatDate(got), domain.FormatDate(want))
	}
}

func TestNextReviewDate_TruncatesReviewInstant(t *testing.T) {
	reviewedAt := time.Date(2024, 1, 10, 23, 45, 0, 0, time.UTC)
	got := NextReviewDate(domain.DifficultyDifficult, nil, reviewedAt)
	if want := mustDate(t, "2024-01-11"); !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
